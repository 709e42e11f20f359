package cli

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mekline/lookit-data-processing/internal/batch"
	"github.com/mekline/lookit-data-processing/internal/ffmpegcmd"
)

var batchCmd = &cobra.Command{
	Use:   "batch",
	Short: "Group eligible clips into coding batches",
	Long: `batch collects every processed clip that passes the study's batch
criteria and is not yet in a batch, groups them up to the configured running
length, and concatenates each group into a batch video under the batch
directory. A batch never mixes video widths, and a final short batch is only
kept when the study opts in.`,
	Run: func(cmd *cobra.Command, args []string) {
		mustFFmpeg()
		layout, _, r := mustReconciler()

		b, err := batch.New(layout, r.Settings, ffmpegcmd.ExecRunner{}, r.Videos, r.Coding)
		if err != nil {
			log.Fatal().Err(err).Msg("Could not load batch data")
		}
		made, err := b.MakeBatches()
		if err != nil {
			log.Fatal().Err(err).Msg("Batching failed")
		}
		log.Info().Int("batches", len(made)).Msg("Batches created")
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
}
