// Package cli defines the lookit command tree. Each subcommand is one
// operator action over a single study; shared setup (layout, study settings,
// pipeline state) lives here in the root.
package cli

import (
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mekline/lookit-data-processing/internal/ffmpegcmd"
	"github.com/mekline/lookit-data-processing/internal/logging"
	"github.com/mekline/lookit-data-processing/internal/lookitapi"
	"github.com/mekline/lookit-data-processing/internal/paths"
	"github.com/mekline/lookit-data-processing/internal/reconcile"
	"github.com/mekline/lookit-data-processing/internal/study"
)

// CLI flags shared by most subcommands.
var (
	studyFlag    string
	settingsFlag string
	replaceFlag  bool
)

var rootCmd = &cobra.Command{
	Use:   "lookit",
	Short: "Research-operations toolkit for Lookit studies",
	Long: `lookit manages the offline side of running a Lookit study: pulling raw
session videos, reconciling them against fetched session data, rendering
labeled clips, concatenating session review videos, building coding batches,
and moving coding between binary snapshots and CSV sheets.

Directories come from LOOKIT_VIDEO_DIR, LOOKIT_SESSION_DIR, LOOKIT_BATCH_DIR,
LOOKIT_DATA_DIR, and LOOKIT_CODING_DIR. Study settings are read from a TOML
file (--settings, default $LOOKIT_DATA_DIR/studies.toml).

Examples:
  lookit update --study physics
  lookit videos --study physics
  lookit concat --study physics
  lookit batch --study physics
  lookit codesheet --study physics --coder Kim`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		commandName = cmd.Name()
	},
}

// commandName is the subcommand being run, recorded for the run log.
var commandName string

func init() {
	rootCmd.PersistentFlags().StringVarP(&studyFlag, "study", "s", "", "Study nickname or id (required)")
	rootCmd.PersistentFlags().StringVar(&settingsFlag, "settings", "", "Path to the study settings TOML file")
}

// Execute runs the command tree.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// mustLayout resolves the directory layout or exits.
func mustLayout() *paths.Layout {
	layout, err := paths.FromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("Directory layout not configured")
	}
	logging.NewRunLogger(commandName).
		Dir("videos", layout.VideoDir).
		Dir("sessions", layout.SessionDir).
		Dir("batches", layout.BatchDir).
		Dir("data", layout.DataDir).
		Dir("coding", layout.CodingDir).
		Config("study", studyFlag).
		Log()
	return layout
}

// mustConfig loads the study settings file or exits.
func mustConfig(layout *paths.Layout) *study.Config {
	path := settingsFlag
	if path == "" {
		path = os.Getenv("LOOKIT_STUDY_SETTINGS")
	}
	if path == "" {
		path = filepath.Join(layout.DataDir, "studies.toml")
	}
	cfg, err := study.LoadConfig(path)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load study settings")
	}
	return cfg
}

// mustStudy loads the settings file and resolves the --study flag or exits.
func mustStudy(layout *paths.Layout) (*study.Config, *study.Settings) {
	if studyFlag == "" {
		log.Fatal().Msg("--study is required")
	}
	cfg := mustConfig(layout)
	s, err := cfg.Lookup(studyFlag)
	if err != nil {
		log.Fatal().Err(err).Msg("Unknown study")
	}
	return cfg, s
}

// mustReconciler builds the pipeline state for the selected study or exits.
func mustReconciler() (*paths.Layout, *study.Config, *reconcile.Reconciler) {
	layout := mustLayout()
	cfg, s := mustStudy(layout)
	r, err := reconcile.New(layout, s, ffmpegcmd.ExecRunner{})
	if err != nil {
		log.Fatal().Err(err).Msg("Could not load pipeline state")
	}
	return layout, cfg, r
}

// mustFFmpeg verifies the external tools before a media command runs.
func mustFFmpeg() {
	if err := ffmpegcmd.CheckAvailable(); err != nil {
		log.Fatal().Err(err).Msg("FFmpeg tooling missing")
	}
}

// mustAPI builds the platform API client from the environment or exits.
func mustAPI() *lookitapi.Client {
	token := os.Getenv("LOOKIT_API_TOKEN")
	if token == "" {
		log.Fatal().Msg("LOOKIT_API_TOKEN is not set")
	}
	base := logging.EnvOrDefault("LOOKIT_API_URL", "https://metadata.osf.io/v1/id")
	return lookitapi.New(base, token)
}
