package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update",
	Short: "Fetch session data and bring coding records in step",
	Long: `update pulls the study's session data from the platform API, creates
coding records for any new sessions, rederives each record's expected videos,
and rebuilds the match between expected and found videos.`,
	Run: func(cmd *cobra.Command, args []string) {
		_, _, r := mustReconciler()
		api := mustAPI()

		fetched, err := r.UpdateSessionData(cmd.Context(), api)
		if err != nil {
			log.Fatal().Err(err).Msg("Fetching session data failed")
		}
		newSessions, err := r.UpdateCoding()
		if err != nil {
			log.Fatal().Err(err).Msg("Updating coding records failed")
		}
		if err := r.UpdateVideosFound(); err != nil {
			log.Fatal().Err(err).Msg("Matching videos to sessions failed")
		}
		log.Info().Int("fetched", fetched).Int("new", newSessions).Msg("Update complete")
	},
}

func init() {
	rootCmd.AddCommand(updateCmd)
}
