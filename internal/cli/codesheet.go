package cli

import (
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mekline/lookit-data-processing/internal/codesheet"
)

var (
	sheetCoder  string
	sheetFilter []string
)

var codesheetCmd = &cobra.Command{
	Use:   "codesheet",
	Short: "Export CSV coding sheets from the coding records",
	Long: `codesheet writes one CSV sheet per coder (or a single coder's sheet
with --coder) from the study's coding records. Existing sheets are backed up
before being overwritten, so manual edits are never silently lost; commit
them first with 'lookit commit'.

Filters restrict the exported rows, e.g. --filter consent=yes.`,
	Run: func(cmd *cobra.Command, args []string) {
		layout, cfg, r := mustReconciler()

		filter := map[string]string{}
		for _, f := range sheetFilter {
			k, v, ok := strings.Cut(f, "=")
			if !ok {
				log.Fatal().Str("filter", f).Msg("Filters take the form column=value")
			}
			filter[k] = v
		}

		coders := cfg.Coders
		if sheetCoder != "" {
			coders = []string{sheetCoder}
		}
		for _, coder := range coders {
			err := codesheet.ExportSessions(layout, r.Settings, cfg.Coders, r.Sessions, r.Coding,
				codesheet.ExportOptions{
					Coder:        coder,
					Filter:       filter,
					OmitChildren: cfg.IgnoreProfiles,
				})
			if err != nil {
				log.Fatal().Err(err).Str("coder", coder).Msg("Sheet export failed")
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(codesheetCmd)
	codesheetCmd.Flags().StringVar(&sheetCoder, "coder", "", "Export only this coder's sheet")
	codesheetCmd.Flags().StringArrayVar(&sheetFilter, "filter", nil, "Only export rows matching column=value (repeatable)")
}
