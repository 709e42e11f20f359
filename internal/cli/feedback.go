package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Push coded feedback to the platform",
	Long: `feedback sends each session's coded feedback text to the platform,
where families can read it. Only sessions whose local feedback differs from
what the platform already shows are updated.`,
	Run: func(cmd *cobra.Command, args []string) {
		_, _, r := mustReconciler()
		api := mustAPI()

		updated, err := r.PushFeedback(cmd.Context(), api)
		if err != nil {
			log.Fatal().Err(err).Int("pushed", len(updated)).Msg("Pushing feedback failed")
		}
	},
}

func init() {
	rootCmd.AddCommand(feedbackCmd)
}
