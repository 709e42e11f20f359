package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mekline/lookit-data-processing/internal/codesheet"
)

var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "Fetch family accounts and export the account sheet",
	Long: `accounts refreshes the shared family-account snapshot from the
platform and writes the account CSV, one row per child profile, for
recruitment and reminder mailings.`,
	Run: func(cmd *cobra.Command, args []string) {
		layout, _, r := mustReconciler()
		api := mustAPI()

		accounts, err := r.UpdateAccountData(cmd.Context(), api)
		if err != nil {
			log.Fatal().Err(err).Msg("Fetching accounts failed")
		}
		if err := codesheet.ExportAccounts(layout, accounts); err != nil {
			log.Fatal().Err(err).Msg("Account sheet export failed")
		}
	},
}

func init() {
	rootCmd.AddCommand(accountsCmd)
}
