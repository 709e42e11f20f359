package cli

import (
	"os"
	"sort"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mekline/lookit-data-processing/internal/notify"
	"github.com/mekline/lookit-data-processing/internal/records"
	"github.com/mekline/lookit-data-processing/internal/store"
	"github.com/mekline/lookit-data-processing/internal/study"
)

var (
	remindCampaign string
	remindSubject  string
	remindBodyFile string
	remindDryRun   bool
)

var remindCmd = &cobra.Command{
	Use:   "remind",
	Short: "Mail a campaign to every family account",
	Long: `remind sends one email per family account from the last accounts
fetch. The campaign name keys the sent log, so re-running the same campaign
only reaches accounts added since the previous run. Lab test accounts (those
with an ignored child profile) are skipped.

The message body is HTML read from --body. Credentials come from
SENDGRID_API_KEY, and the sender address from LOOKIT_MAIL_FROM.

Use --dry-run to list the recipients without sending anything.`,
	Run: func(cmd *cobra.Command, args []string) {
		if remindCampaign == "" || remindSubject == "" || remindBodyFile == "" {
			log.Fatal().Msg("--campaign, --subject, and --body are all required")
		}
		layout := mustLayout()
		cfg := mustConfig(layout)

		body, err := os.ReadFile(remindBodyFile)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not read message body")
		}

		accounts := map[string]records.Account{}
		if err := store.Load(layout.AccountDataFile(), &accounts); err != nil {
			log.Fatal().Err(err).Msg("Could not load account data; run 'lookit accounts' first")
		}
		sentLog, err := notify.OpenSentLog(layout.SentLogFile())
		if err != nil {
			log.Fatal().Err(err).Msg("Could not open sent log")
		}

		var mailer *notify.Client
		if !remindDryRun {
			apiKey := os.Getenv("SENDGRID_API_KEY")
			from := os.Getenv("LOOKIT_MAIL_FROM")
			if apiKey == "" || from == "" {
				log.Fatal().Msg("SENDGRID_API_KEY and LOOKIT_MAIL_FROM must be set")
			}
			mailer = notify.New(apiKey, from)
		}

		ids := make([]string, 0, len(accounts))
		for id := range accounts {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		sent := 0
		for _, id := range ids {
			acct := accounts[id]
			email := acct.Email()
			if email == "" || labAccount(cfg, acct) {
				continue
			}
			if sentLog.Sent(email, remindCampaign) {
				continue
			}
			if remindDryRun {
				log.Info().Str("account", id).Str("email", email).Msg("Would send")
				sent++
				continue
			}
			if err := mailer.Send(cmd.Context(), email, remindSubject, string(body)); err != nil {
				log.Fatal().Err(err).Str("email", email).Int("sent", sent).Msg("Campaign aborted")
			}
			if err := sentLog.Record(email, remindCampaign); err != nil {
				log.Fatal().Err(err).Msg("Could not record send; stopping to avoid double-mailing")
			}
			sent++
		}
		log.Info().Str("campaign", remindCampaign).Int("sent", sent).Bool("dryRun", remindDryRun).
			Msg("Campaign finished")
	},
}

// labAccount reports whether any of the account's child profiles belongs to
// the lab's test profiles.
func labAccount(cfg *study.Config, acct records.Account) bool {
	for _, profile := range acct.Profiles() {
		if id, ok := profile["profileId"].(string); ok && cfg.Ignored(id) {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.AddCommand(remindCmd)
	remindCmd.Flags().StringVar(&remindCampaign, "campaign", "", "Campaign name keying the sent log (required)")
	remindCmd.Flags().StringVar(&remindSubject, "subject", "", "Message subject (required)")
	remindCmd.Flags().StringVar(&remindBodyFile, "body", "", "Path to the HTML message body (required)")
	remindCmd.Flags().BoolVar(&remindDryRun, "dry-run", false, "List recipients without sending")
}
