package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mekline/lookit-data-processing/internal/codesheet"
)

var (
	commitCoder  string
	commitFields []string
)

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Read a coder's edited sheet back into the coding records",
	Long: `commit pulls a coder's comment column from their CSV sheet into the
coding records. With --global, the named shared fields (consent, usable,
feedback) are committed from the same sheet as well; use that only for the
coder whose judgements are authoritative for those fields.`,
	Run: func(cmd *cobra.Command, args []string) {
		if commitCoder == "" {
			log.Fatal().Msg("--coder is required")
		}
		layout, _, r := mustReconciler()

		updated, err := codesheet.CommitCoder(layout, r.Settings, r.Coding, commitCoder)
		if err != nil {
			log.Fatal().Err(err).Msg("Committing coder column failed")
		}
		if len(commitFields) > 0 {
			n, err := codesheet.CommitGlobal(layout, r.Settings, r.Coding, commitCoder, commitFields)
			if err != nil {
				log.Fatal().Err(err).Msg("Committing global fields failed")
			}
			updated += n
		}
		if err := r.SaveCoding(); err != nil {
			log.Fatal().Err(err).Msg("Saving coding records failed")
		}
		log.Info().Int("updated", updated).Msg("Sheet committed")
	},
}

func init() {
	rootCmd.AddCommand(commitCmd)
	commitCmd.Flags().StringVar(&commitCoder, "coder", "", "Coder whose sheet to commit (required)")
	commitCmd.Flags().StringSliceVar(&commitFields, "global", nil, "Also commit these shared fields (consent, usable, feedback)")
}
