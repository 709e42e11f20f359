package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mekline/lookit-data-processing/internal/batch"
	"github.com/mekline/lookit-data-processing/internal/ffmpegcmd"
)

var removeBatchFiles bool

var removeBatchCmd = &cobra.Command{
	Use:   "remove-batch <id|filename|all>",
	Short: "Remove a coding batch and free its clips for re-batching",
	Long: `remove-batch deletes a batch record (by id or artifact filename, or
every batch with "all") and clears the back-references on its clips so they
become eligible for batching again. With --delete-files the batch video is
removed from disk too.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		layout, _, r := mustReconciler()

		b, err := batch.New(layout, r.Settings, ffmpegcmd.ExecRunner{}, r.Videos, r.Coding)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not load batch data")
		}
		if err := b.Remove(args[0], removeBatchFiles); err != nil {
			log.Fatal().Err(err).Msg("Removing batch failed")
		}
		log.Info().Str("batch", args[0]).Msg("Batch removed")
	},
}

func init() {
	rootCmd.AddCommand(removeBatchCmd)
	removeBatchCmd.Flags().BoolVar(&removeBatchFiles, "delete-files", false, "Also delete the batch video from disk")
}
