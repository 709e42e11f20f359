// Package transform turns one raw clip into a processed, labeled mp4: a
// silent constant-framerate video render, a silence-padded audio render, and
// a mux of the two. Splitting the streams keeps a clip whose audio track is
// shorter than its video (common with the flash recorder) from truncating
// the visual record.
package transform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mekline/lookit-data-processing/internal/ffmpegcmd"
	"github.com/mekline/lookit-data-processing/internal/probe"
	"github.com/mekline/lookit-data-processing/internal/records"
	"github.com/mekline/lookit-data-processing/internal/videoname"
)

// Engine renders processed clip variants into the session directory.
type Engine struct {
	runner     ffmpegcmd.Runner
	prober     *probe.Prober
	videoDir   string
	sessionDir string
}

// New returns an Engine reading raw clips from videoDir and writing
// processed ones into sessionDir.
func New(runner ffmpegcmd.Runner, prober *probe.Prober, videoDir, sessionDir string) *Engine {
	return &Engine{runner: runner, prober: prober, videoDir: videoDir, sessionDir: sessionDir}
}

// Options controls one render.
type Options struct {
	// Variant names the render ("whole", "trimmed") and suffixes the output
	// filename; results are recorded under this key in the video record.
	Variant string
	Trim    ffmpegcmd.TrimSpec
	// Events is the clip's event timeline, consulted for event-based trims
	// and burned in as timed annotations when present.
	Events []records.Event
	// Replace forces re-rendering even when a previous result exists.
	Replace bool
}

// Result is the outcome of one render: the processed clip's duration and its
// path relative to the session directory. A failed render is {0, ""}.
type Result struct {
	Duration float64
	Path     string
}

// Process renders one variant of rawName and records the outcome in rec.
//
// If a usable result is already recorded and its file still exists, nothing
// is re-rendered (and no external tool runs) unless Replace is set. A render
// whose video stream comes out empty is recorded as failed so the session
// concatenation skips it, but is not an error. A clip whose audio render
// fails keeps the video-only render as its result; recordings without an
// audio track are routine.
func (e *Engine) Process(rawName string, rec *records.RawVideoRecord, opts Options) (Result, error) {
	stem := strings.TrimSuffix(rawName, videoname.Ext)
	outName := stem + "_" + opts.Variant + ".mp4"
	outPath := filepath.Join(e.sessionDir, outName)

	if !opts.Replace && rec.HasClip(opts.Variant) {
		if _, err := os.Stat(outPath); err == nil {
			log.Debug().Str("clip", outName).Msg("Already processed, skipping")
			return Result{Duration: rec.ClipDurations[opts.Variant], Path: rec.ClipPaths[opts.Variant]}, nil
		}
	}

	start, ok := e.resolveStart(rawName, opts)
	if !ok {
		// Event-based trim with no matching event: render untrimmed.
		start = 0
	}

	videoTmp := filepath.Join(e.sessionDir, stem+"_"+opts.Variant+"_video.mp4")
	audioTmp := filepath.Join(e.sessionDir, stem+"_"+opts.Variant+"_audio.m4a")
	defer func() {
		os.Remove(videoTmp)
		os.Remove(audioTmp)
	}()

	rawPath := filepath.Join(e.videoDir, rawName)
	render := ffmpegcmd.VideoRender{
		Input:       rawPath,
		Output:      videoTmp,
		Overlay:     ffmpegcmd.Overlay{Label: stem, Annotations: annotations(opts.Events)},
		StartOffset: start,
	}
	if _, err := e.runner.Run("ffmpeg", render.Args()...); err != nil {
		e.recordFailure(rec, opts.Variant)
		return Result{}, fmt.Errorf("rendering video stream of %s: %w", rawName, err)
	}

	vidDur := e.prober.GetOne(videoTmp, probe.VidDuration)
	if vidDur <= 0 {
		log.Warn().Str("clip", rawName).Str("variant", opts.Variant).
			Msg("Processed video stream is empty, recording as failed")
		e.recordFailure(rec, opts.Variant)
		return Result{}, nil
	}

	audio := ffmpegcmd.AudioRender{Input: rawPath, Output: audioTmp, StartOffset: start}
	if _, err := e.runner.Run("ffmpeg", audio.Args()...); err != nil {
		log.Warn().Err(err).Str("clip", rawName).Str("variant", opts.Variant).
			Msg("No usable audio stream, keeping video-only clip")
		if err := os.Rename(videoTmp, outPath); err != nil {
			e.recordFailure(rec, opts.Variant)
			return Result{}, fmt.Errorf("keeping video-only render of %s: %w", rawName, err)
		}
	} else {
		mux := ffmpegcmd.Mux{VideoInput: videoTmp, AudioInput: audioTmp, Output: outPath}
		if _, err := e.runner.Run("ffmpeg", mux.Args()...); err != nil {
			e.recordFailure(rec, opts.Variant)
			return Result{}, fmt.Errorf("muxing %s: %w", outName, err)
		}
	}

	dur := e.prober.GetOne(outPath, probe.VidDuration)
	res := Result{Duration: dur, Path: outName}
	rec.ClipDurations[opts.Variant] = dur
	rec.ClipPaths[opts.Variant] = outName
	log.Info().Str("clip", outName).Float64("duration", dur).Msg("Processed clip")
	return res, nil
}

func (e *Engine) recordFailure(rec *records.RawVideoRecord, variant string) {
	rec.ClipDurations[variant] = 0
	rec.ClipPaths[variant] = ""
}

// resolveStart turns the trim specification into a concrete start offset.
// The second return is false when an event-based trim found no matching
// event.
func (e *Engine) resolveStart(rawName string, opts Options) (float64, bool) {
	switch opts.Trim.Kind {
	case ffmpegcmd.TrimFromStart:
		return opts.Trim.Seconds, true
	case ffmpegcmd.TrimKeepTail:
		dur := e.prober.GetOne(rawName, probe.Duration)
		if dur <= 0 {
			return 0, true
		}
		start := dur - opts.Trim.Seconds
		if start < 0 {
			start = 0
		}
		return start, true
	case ffmpegcmd.TrimAtEvent:
		for _, ev := range opts.Events {
			if strings.HasSuffix(ev.Type, opts.Trim.EventSuffix) && ev.StreamTime >= 0 {
				return ev.StreamTime, true
			}
		}
		log.Warn().Str("clip", rawName).Str("event", opts.Trim.EventSuffix).
			Msg("No matching event for trim, keeping whole clip")
		return 0, false
	}
	return 0, true
}

// annotations converts the event timeline into timed overlays. Each event's
// label shows until the next event; the last shows to the end of the clip.
// Times stay on the raw clip's timeline: the overlay filters run before the
// trim, so they see pre-trim timestamps.
func annotations(events []records.Event) []ffmpegcmd.Annotation {
	var anns []ffmpegcmd.Annotation
	for _, ev := range events {
		if ev.StreamTime < 0 {
			continue
		}
		if n := len(anns); n > 0 {
			anns[n-1].Until = ev.StreamTime
		}
		anns = append(anns, ffmpegcmd.Annotation{Text: shortEventName(ev.Type), From: ev.StreamTime})
	}
	return anns
}

// shortEventName strips the "exp-physics:"-style prefix for display.
func shortEventName(eventType string) string {
	if _, name, found := strings.Cut(eventType, ":"); found {
		return name
	}
	return eventType
}
