// Package reconcile drives the session pipeline: matching raw uploads to the
// sessions that produced them, keeping coding records in step with fetched
// session data, rendering processed clips, and concatenating each session's
// clips into a single review video.
//
// A Reconciler carries all run state explicitly (video records, coding
// records, session data, study settings) and persists it through the store
// after every mutating operation.
package reconcile

import (
	"fmt"

	"github.com/mekline/lookit-data-processing/internal/concat"
	"github.com/mekline/lookit-data-processing/internal/ffmpegcmd"
	"github.com/mekline/lookit-data-processing/internal/paths"
	"github.com/mekline/lookit-data-processing/internal/probe"
	"github.com/mekline/lookit-data-processing/internal/records"
	"github.com/mekline/lookit-data-processing/internal/store"
	"github.com/mekline/lookit-data-processing/internal/study"
	"github.com/mekline/lookit-data-processing/internal/transform"
)

// driftTolerance is the accepted difference between a concatenated video's
// expected and probed duration: one frame at 30 fps.
const driftTolerance = 1.0 / 30.0

// Reconciler holds the full state of one study's pipeline run.
type Reconciler struct {
	Layout     *paths.Layout
	Settings   *study.Settings
	Strategies study.Strategies

	Engine *transform.Engine
	Joiner *concat.Joiner
	Prober *probe.Prober

	// Videos is keyed by raw filename; shared across studies on disk but
	// filtered to this study's uploads in memory operations.
	Videos map[string]*records.RawVideoRecord
	// Coding and Sessions are keyed by session key.
	Coding   map[string]*records.SessionCodingRecord
	Sessions map[string]records.SessionRecord
}

// New loads the persisted state for the study and wires the media tooling.
func New(layout *paths.Layout, settings *study.Settings, runner ffmpegcmd.Runner) (*Reconciler, error) {
	prober := probe.New(runner, layout.VideoDir)
	r := &Reconciler{
		Layout:     layout,
		Settings:   settings,
		Strategies: settings.Strategies(),
		Engine:     transform.New(runner, prober, layout.VideoDir, layout.SessionDir),
		Joiner:     concat.New(runner, prober),
		Prober:     prober,
		Videos:     map[string]*records.RawVideoRecord{},
		Coding:     map[string]*records.SessionCodingRecord{},
		Sessions:   map[string]records.SessionRecord{},
	}
	if err := store.Load(layout.VideoDataFile(), &r.Videos); err != nil {
		return nil, fmt.Errorf("loading video data: %w", err)
	}
	if err := store.Load(layout.CodingDataFile(settings.ID), &r.Coding); err != nil {
		return nil, fmt.Errorf("loading coding data: %w", err)
	}
	if err := store.Load(layout.SessionDataFile(settings.ID), &r.Sessions); err != nil {
		return nil, fmt.Errorf("loading session data: %w", err)
	}
	return r, nil
}

// SaveVideos snapshots the raw-video records.
func (r *Reconciler) SaveVideos() error {
	return store.Save(r.Layout.VideoDataFile(), r.Videos)
}

// SaveCoding snapshots the coding records.
func (r *Reconciler) SaveCoding() error {
	return store.Save(r.Layout.CodingDataFile(r.Settings.ID), r.Coding)
}

// SaveSessions snapshots the fetched session data.
func (r *Reconciler) SaveSessions() error {
	return store.Save(r.Layout.SessionDataFile(r.Settings.ID), r.Sessions)
}

// frameForVideoID finds the frame whose recording produced the given
// expected video id.
func frameForVideoID(sess records.SessionRecord, videoID string) (string, map[string]any) {
	for frameID, raw := range sess.ExpData() {
		frame, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if records.FrameVideoID(frame) == videoID {
			return frameID, frame
		}
	}
	return "", nil
}
