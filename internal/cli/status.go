package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mekline/lookit-data-processing/internal/paths"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the study's pipeline state",
	Long: `status reports where the study stands: sessions fetched, sessions
with coding records, raw videos on file, sessions with a concatenated review
video, and the total footage recorded.`,
	Run: func(cmd *cobra.Command, args []string) {
		_, _, r := mustReconciler()

		videos := 0
		footage := 0.0
		for _, rec := range r.Videos {
			if studyID, _, err := paths.ParseSessionKey(rec.SessionKey); err != nil || studyID != r.Settings.ID {
				continue
			}
			videos++
			if rec.Duration > 0 {
				footage += rec.Duration
			}
		}

		concatenated := 0
		withdrawn := 0
		for _, coding := range r.Coding {
			if coding.ConcatPath != "" {
				concatenated++
			}
			if coding.Withdrawn != nil && *coding.Withdrawn {
				withdrawn++
			}
		}

		log.Info().
			Str("study", r.Settings.Nickname).
			Int("sessions", len(r.Sessions)).
			Int("coded", len(r.Coding)).
			Int("withdrawn", withdrawn).
			Int("videos", videos).
			Int("concatenated", concatenated).
			Str("footage", FormatSeconds(footage)).
			Msg("Pipeline status")
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
