package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var concatReplace bool

var concatCmd = &cobra.Command{
	Use:   "concat",
	Short: "Concatenate each session's clips into one review video",
	Long: `concat builds a single review video per session from its processed
clips, in recording order. Withdrawn sessions are skipped, and studies that
gate on consent only concatenate consented sessions. Sessions that already
have a concatenated video are left alone unless --replace is set.`,
	Run: func(cmd *cobra.Command, args []string) {
		mustFFmpeg()
		_, _, r := mustReconciler()

		made, err := r.ConcatenateSessions(concatReplace)
		if err != nil {
			log.Fatal().Err(err).Msg("Concatenation failed")
		}
		log.Info().Int("sessions", len(made)).Msg("Session videos concatenated")
	},
}

func init() {
	rootCmd.AddCommand(concatCmd)
	concatCmd.Flags().BoolVar(&concatReplace, "replace", false, "Rebuild existing session videos")
}
