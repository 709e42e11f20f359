// Package concat joins processed clips into a single session or batch video
// with the concat filter. The filter requires every input to carry the same
// stream layout, so when any clip lacks audio the whole join degrades to
// video-only instead of failing.
package concat

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/mekline/lookit-data-processing/internal/ffmpegcmd"
	"github.com/mekline/lookit-data-processing/internal/probe"
)

// Joiner concatenates clips and verifies the result.
type Joiner struct {
	runner ffmpegcmd.Runner
	prober *probe.Prober
}

// New returns a Joiner.
func New(runner ffmpegcmd.Runner, prober *probe.Prober) *Joiner {
	return &Joiner{runner: runner, prober: prober}
}

// Join concatenates the inputs (full paths, in order) into outPath and
// returns the probed duration of the result. An empty input list creates
// nothing and returns 0.
func (j *Joiner) Join(inputs []string, outPath string) (float64, error) {
	if len(inputs) == 0 {
		return 0, nil
	}

	withAudio := true
	for _, in := range inputs {
		if !j.prober.HasAudio(in) {
			log.Warn().Str("clip", in).Msg("Clip has no audio, concatenating video only")
			withAudio = false
			break
		}
	}

	cmd := ffmpegcmd.Concat{Inputs: inputs, Output: outPath, WithAudio: withAudio}
	if _, err := j.runner.Run("ffmpeg", cmd.Args()...); err != nil {
		return 0, fmt.Errorf("concatenating %d clips into %s: %w", len(inputs), outPath, err)
	}

	dur := j.prober.GetOne(outPath, probe.VidDuration)
	log.Info().Str("output", outPath).Int("clips", len(inputs)).Float64("duration", dur).
		Msg("Concatenated")
	return dur, nil
}
