package cli

import (
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mekline/lookit-data-processing/internal/s3sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Pull new raw videos from the S3 bucket",
	Long: `sync downloads every raw recording in the LOOKIT_S3_BUCKET bucket
that is not already in the local video directory. Downloads go through a
temporary file, so an interrupted sync never leaves a truncated video behind.
AWS credentials come from the standard SDK sources (environment, shared
config).`,
	Run: func(cmd *cobra.Command, args []string) {
		layout := mustLayout()
		bucket := os.Getenv("LOOKIT_S3_BUCKET")
		if bucket == "" {
			log.Fatal().Msg("LOOKIT_S3_BUCKET is not set")
		}

		client, err := s3sync.NewClient(cmd.Context())
		if err != nil {
			log.Fatal().Err(err).Msg("Could not configure AWS client")
		}
		pulled, err := s3sync.New(client, bucket, layout.VideoDir).Pull(cmd.Context())
		if err != nil {
			log.Fatal().Err(err).Int("pulled", len(pulled)).Msg("Sync failed")
		}
		log.Info().Int("pulled", len(pulled)).Msg("Sync complete")
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
