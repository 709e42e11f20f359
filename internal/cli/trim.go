package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var trimCmd = &cobra.Command{
	Use:   "trim",
	Short: "Re-render every trimmed clip with the current trim setting",
	Long: `trim discards and re-renders the trimmed variant of every clip.
Run it after changing a study's trimLength so existing sessions pick up the
new setting; follow with 'concat --replace' to rebuild their review videos.`,
	Run: func(cmd *cobra.Command, args []string) {
		mustFFmpeg()
		_, _, r := mustReconciler()

		if err := r.ReprocessTrimmed(); err != nil {
			log.Fatal().Err(err).Msg("Re-trimming failed")
		}
		log.Info().Msg("Trimmed clips re-rendered")
	},
}

func init() {
	rootCmd.AddCommand(trimCmd)
}
