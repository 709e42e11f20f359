package reconcile

import (
	"math"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/mekline/lookit-data-processing/internal/ffmpegcmd"
	"github.com/mekline/lookit-data-processing/internal/records"
	"github.com/mekline/lookit-data-processing/internal/study"
	"github.com/mekline/lookit-data-processing/internal/videoname"
)

// ConcatenateSessions builds one review video per session from its processed
// clips, in recording order, and records the artifact and its durations in
// the coding data. Sessions whose artifact already exists are skipped unless
// replace is set. Returns the session keys that produced a new artifact.
func (r *Reconciler) ConcatenateSessions(replace bool) ([]string, error) {
	var made []string
	for _, key := range sortedKeys(r.Coding) {
		coding := r.Coding[key]

		if coding.Withdrawn != nil && *coding.Withdrawn {
			log.Warn().Str("session", key).Msg("Session withdrawn, not concatenating")
			continue
		}
		if r.Settings.OnlyConcatIfConsent && coding.Consent != "yes" {
			log.Debug().Str("session", key).Str("consent", coding.Consent).
				Msg("Consent not confirmed, not concatenating")
			continue
		}

		outName := key + ".mp4"
		outPath := filepath.Join(r.Layout.SessionDir, outName)
		if !replace && coding.ConcatPath != "" {
			if _, err := os.Stat(outPath); err == nil {
				log.Debug().Str("session", key).Msg("Session video already made, skipping")
				continue
			}
		}

		clips := r.selectClips(key, coding)
		if r.Strategies.Filter != nil {
			clips = r.Strategies.Filter.FilterClips(clips, coding)
		}
		sort.SliceStable(clips, func(i, j int) bool {
			return clips[i].Timestamp < clips[j].Timestamp
		})
		if len(clips) == 0 {
			log.Warn().Str("session", key).Msg("No processed clips available, skipping session")
			continue
		}

		inputs := make([]string, len(clips))
		expected := 0.0
		for i, c := range clips {
			rec := r.Videos[c.VideoName]
			variant := clipVariant(c)
			inputs[i] = filepath.Join(r.Layout.SessionDir, rec.ClipPaths[variant])
			expected += rec.ClipDurations[variant]
		}

		actual, err := r.Joiner.Join(inputs, outPath)
		if err != nil {
			log.Warn().Err(err).Str("session", key).Msg("Concatenation failed")
			continue
		}
		if math.Abs(actual-expected) > driftTolerance {
			log.Warn().Str("session", key).
				Float64("expected", expected).Float64("actual", actual).
				Msg("Concatenated duration drifts from summed clip durations")
		}

		coding.ConcatPath = outName
		coding.ExpectedDuration = expected
		coding.ActualDuration = actual
		if r.Strategies.Concat != nil {
			r.Strategies.Concat.ProcessConcat(coding, clips)
		}
		made = append(made, key)
	}

	if err := r.SaveCoding(); err != nil {
		return nil, err
	}
	if err := r.SaveVideos(); err != nil {
		return nil, err
	}
	log.Info().Int("sessions", len(made)).Msg("Session videos concatenated")
	return made, nil
}

// selectClips picks, per expected video, the found clips that can enter the
// concatenation: skip-listed frames are excluded and clips without a usable
// processed variant are dropped.
func (r *Reconciler) selectClips(key string, coding *records.SessionCodingRecord) []study.ConcatClip {
	sess, haveSession := r.Sessions[key]
	clips := []study.ConcatClip{}
	for i, group := range coding.VideosFound {
		if i >= len(coding.VideosExpected) {
			break
		}
		frameID := ""
		if haveSession {
			frameID, _ = frameForVideoID(sess, coding.VideosExpected[i])
		}
		if frameID != "" && study.MatchesFrame(frameID, r.Settings.SkipFrames) {
			continue
		}
		useWhole := r.Settings.Trim.Spec().Kind == ffmpegcmd.TrimNone ||
			(frameID != "" && study.MatchesFrame(frameID, r.Settings.UseWholeVideo))

		for _, name := range group {
			rec, ok := r.Videos[name]
			if !ok {
				continue
			}
			clip := study.ConcatClip{
				VideoName:     name,
				ExpectedIndex: i,
				UseWhole:      useWhole,
			}
			if id, err := videoname.Parse(name); err == nil {
				clip.Timestamp = id.Timestamp
			}
			if rec.ClipPaths[clipVariant(clip)] == "" {
				log.Warn().Str("session", key).Str("file", name).
					Msg("Clip not processed yet, leaving out of session video")
				continue
			}
			clips = append(clips, clip)
		}
	}
	return clips
}

func clipVariant(c study.ConcatClip) string {
	if c.UseWhole {
		return records.VariantWhole
	}
	return records.VariantTrimmed
}
