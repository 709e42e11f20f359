package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var videosCmd = &cobra.Command{
	Use:   "videos",
	Short: "Scan raw uploads, probe them, and render processed clips",
	Long: `videos walks the raw video directory, records every upload belonging
to the study, rebuilds the expected-video matches, and renders the processed
clip variants (whole, and trimmed when the study trims).

With --replace, existing records are re-probed and every clip is re-rendered.`,
	Run: func(cmd *cobra.Command, args []string) {
		mustFFmpeg()
		_, _, r := mustReconciler()

		scan, err := r.UpdateVideoData(replaceFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("Scanning video directory failed")
		}
		if err := r.UpdateVideosFound(); err != nil {
			log.Fatal().Err(err).Msg("Matching videos to sessions failed")
		}
		if err := r.ProcessClips(replaceFlag); err != nil {
			log.Fatal().Err(err).Msg("Clip processing failed")
		}
		log.Info().Int("sessions", len(scan.SessionsAffected)).
			Int("improper", len(scan.Improper)).Int("unmatched", len(scan.Unmatched)).
			Msg("Videos processed")
	},
}

func init() {
	rootCmd.AddCommand(videosCmd)
	videosCmd.Flags().BoolVar(&replaceFlag, "replace", false, "Re-probe and re-render existing clips")
}
