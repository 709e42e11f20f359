package reconcile

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/mekline/lookit-data-processing/internal/ffmpegcmd"
	"github.com/mekline/lookit-data-processing/internal/records"
	"github.com/mekline/lookit-data-processing/internal/transform"
)

// ProcessClips renders the processed variants of every found clip: the
// untrimmed "whole" variant always, and the "trimmed" variant when the study
// configures trimming. Already-rendered clips are skipped unless replace is
// set.
func (r *Reconciler) ProcessClips(replace bool) error {
	keys := sortedKeys(r.Coding)
	for _, key := range keys {
		coding := r.Coding[key]
		sess, haveSession := r.Sessions[key]
		for i, group := range coding.VideosFound {
			var events []records.Event
			if haveSession && i < len(coding.VideosExpected) {
				if _, frame := frameForVideoID(sess, coding.VideosExpected[i]); frame != nil {
					events = records.FrameEvents(frame)
				}
			}
			for _, name := range group {
				rec, ok := r.Videos[name]
				if !ok {
					log.Warn().Str("file", name).Msg("Found video has no record, skipping")
					continue
				}
				if err := r.processOne(name, rec, events, replace); err != nil {
					log.Warn().Err(err).Str("file", name).Msg("Clip processing failed")
				}
			}
		}
	}
	return r.SaveVideos()
}

func (r *Reconciler) processOne(name string, rec *records.RawVideoRecord, events []records.Event, replace bool) error {
	if _, err := r.Engine.Process(name, rec, transform.Options{
		Variant: records.VariantWhole,
		Replace: replace,
	}); err != nil {
		return err
	}

	trim := r.Settings.Trim.Spec()
	if trim.Kind == ffmpegcmd.TrimNone {
		return nil
	}
	_, err := r.Engine.Process(name, rec, transform.Options{
		Variant: records.VariantTrimmed,
		Trim:    trim,
		Events:  events,
		Replace: replace,
	})
	return err
}

// ReprocessTrimmed re-renders only the trimmed variant of every found clip,
// discarding previous results. Used after a study's trim setting changes.
func (r *Reconciler) ReprocessTrimmed() error {
	trim := r.Settings.Trim.Spec()
	if trim.Kind == ffmpegcmd.TrimNone {
		return fmt.Errorf("study %s does not configure trimming", r.Settings.Nickname)
	}
	for _, key := range sortedKeys(r.Coding) {
		coding := r.Coding[key]
		sess, haveSession := r.Sessions[key]
		for i, group := range coding.VideosFound {
			var events []records.Event
			if haveSession && i < len(coding.VideosExpected) {
				if _, frame := frameForVideoID(sess, coding.VideosExpected[i]); frame != nil {
					events = records.FrameEvents(frame)
				}
			}
			for _, name := range group {
				rec, ok := r.Videos[name]
				if !ok {
					continue
				}
				if _, err := r.Engine.Process(name, rec, transform.Options{
					Variant: records.VariantTrimmed,
					Trim:    trim,
					Events:  events,
					Replace: true,
				}); err != nil {
					log.Warn().Err(err).Str("file", name).Msg("Trimmed render failed")
				}
			}
		}
	}
	return r.SaveVideos()
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
