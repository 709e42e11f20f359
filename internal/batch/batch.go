// Package batch groups processed clips into fixed-length coding batches and
// renders each batch as a single video. Batches let coders work through
// material in sittings of a predictable length, and the width-boundary rule
// keeps clips of different camera resolutions out of the same concatenation.
package batch

import (
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mekline/lookit-data-processing/internal/concat"
	"github.com/mekline/lookit-data-processing/internal/ffmpegcmd"
	"github.com/mekline/lookit-data-processing/internal/paths"
	"github.com/mekline/lookit-data-processing/internal/probe"
	"github.com/mekline/lookit-data-processing/internal/records"
	"github.com/mekline/lookit-data-processing/internal/store"
	"github.com/mekline/lookit-data-processing/internal/study"
)

const driftTolerance = 1.0 / 30.0

// Batcher builds and removes coding batches for one study.
type Batcher struct {
	Layout   *paths.Layout
	Settings *study.Settings
	Joiner   *concat.Joiner
	Prober   *probe.Prober

	Videos  map[string]*records.RawVideoRecord
	Coding  map[string]*records.SessionCodingRecord
	Batches map[string]*records.BatchRecord
}

// New loads the study's batch records. The video and coding maps are shared
// with the reconciler that produced them.
func New(layout *paths.Layout, settings *study.Settings, runner ffmpegcmd.Runner,
	videos map[string]*records.RawVideoRecord, coding map[string]*records.SessionCodingRecord) (*Batcher, error) {

	prober := probe.New(runner, layout.VideoDir)
	b := &Batcher{
		Layout:   layout,
		Settings: settings,
		Joiner:   concat.New(runner, prober),
		Prober:   prober,
		Videos:   videos,
		Coding:   coding,
		Batches:  map[string]*records.BatchRecord{},
	}
	if err := store.Load(layout.BatchDataFile(settings.ID), &b.Batches); err != nil {
		return nil, fmt.Errorf("loading batch data: %w", err)
	}
	return b, nil
}

func (b *Batcher) save() error {
	if err := store.Save(b.Layout.BatchDataFile(b.Settings.ID), b.Batches); err != nil {
		return err
	}
	return store.Save(b.Layout.VideoDataFile(), b.Videos)
}

type candidate struct {
	name     string
	rec      *records.RawVideoRecord
	variant  string
	duration float64
	width    float64
}

// MakeBatches groups every eligible clip into batches of at least the
// configured running length and concatenates each into a batch video.
// Returns the ids of the batches created.
func (b *Batcher) MakeBatches() ([]string, error) {
	minDur := b.Settings.BatchLengthMinutes * 60
	if minDur <= 0 {
		return nil, fmt.Errorf("study %s has no batch length configured", b.Settings.Nickname)
	}

	candidates := b.eligibleClips()
	log.Info().Int("clips", len(candidates)).Msg("Clips eligible for batching")

	var made []string
	var cur []candidate
	curDur := 0.0
	flush := func(complete bool) error {
		if len(cur) == 0 {
			return nil
		}
		if !complete && !b.Settings.KeepPartialBatch {
			log.Warn().Int("clips", len(cur)).Float64("duration", curDur).
				Msg("Leftover clips do not fill a batch, not batching them")
			cur, curDur = nil, 0
			return nil
		}
		id, err := b.renderBatch(cur, curDur)
		if err != nil {
			return err
		}
		made = append(made, id)
		cur, curDur = nil, 0
		return nil
	}

	for _, c := range candidates {
		// Clips of a different frame width never join the current batch.
		if len(cur) > 0 && c.width != cur[0].width {
			if err := flush(true); err != nil {
				return made, err
			}
		}
		cur = append(cur, c)
		curDur += c.duration
		// A batch closes only once it runs past the minimum length.
		if curDur > minDur {
			if err := flush(true); err != nil {
				return made, err
			}
		}
	}
	if err := flush(false); err != nil {
		return made, err
	}

	if err := b.save(); err != nil {
		return made, err
	}
	log.Info().Int("batches", len(made)).Msg("Batches created")
	return made, nil
}

// eligibleClips returns the clips that can enter a new batch: processed,
// not already in any batch, and belonging to a session whose coding passes
// the study's batch criteria. Ordered by session then filename so batching
// is deterministic.
func (b *Batcher) eligibleClips() []candidate {
	variant := records.VariantTrimmed
	if b.Settings.Trim.Spec().Kind == ffmpegcmd.TrimNone {
		variant = records.VariantWhole
	}

	var out []candidate
	for name, rec := range b.Videos {
		if len(rec.InBatches) > 0 || !rec.HasClip(variant) {
			continue
		}
		coding, ok := b.Coding[rec.SessionKey]
		if !ok || !b.passesCriteria(coding) {
			continue
		}
		c := candidate{
			name:     name,
			rec:      rec,
			variant:  variant,
			duration: rec.ClipDurations[variant],
		}
		c.width = b.Prober.GetOne(filepath.Join(b.Layout.SessionDir, rec.ClipPaths[variant]), probe.Width)
		if c.width <= 0 {
			log.Warn().Str("file", name).Msg("Could not probe clip width, leaving out of batches")
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].rec.SessionKey != out[j].rec.SessionKey {
			return out[i].rec.SessionKey < out[j].rec.SessionKey
		}
		return out[i].name < out[j].name
	})
	return out
}

// passesCriteria compares coding fields against the study's batch criteria,
// ignoring case and surrounding whitespace.
func (b *Batcher) passesCriteria(coding *records.SessionCodingRecord) bool {
	fields := map[string]string{
		"consent": coding.Consent,
		"usable":  coding.Usable,
	}
	for field, want := range b.Settings.BatchCriteria {
		got, ok := fields[strings.ToLower(field)]
		if !ok {
			log.Warn().Str("field", field).Msg("Unknown batch criterion, treating as failed")
			return false
		}
		if !strings.EqualFold(strings.TrimSpace(got), strings.TrimSpace(want)) {
			return false
		}
	}
	return true
}

func (b *Batcher) renderBatch(clips []candidate, expected float64) (string, error) {
	id := uuid.NewString()
	filename, err := b.batchFilename()
	if err != nil {
		return "", err
	}
	outPath := filepath.Join(b.Layout.BatchDir, filename)

	inputs := make([]string, len(clips))
	for i, c := range clips {
		inputs[i] = filepath.Join(b.Layout.SessionDir, c.rec.ClipPaths[c.variant])
	}
	actual, err := b.Joiner.Join(inputs, outPath)
	if err != nil {
		return "", fmt.Errorf("rendering batch %s: %w", filename, err)
	}
	if math.Abs(actual-expected) > driftTolerance {
		log.Warn().Str("batch", filename).
			Float64("expected", expected).Float64("actual", actual).
			Msg("Batch duration drifts from summed clip durations")
	}

	rec := &records.BatchRecord{
		ID:        id,
		Filename:  filename,
		StudyID:   b.Settings.ID,
		Duration:  actual,
		Width:     clips[0].width,
		CreatedAt: time.Now(),
	}
	for i, c := range clips {
		rec.Clips = append(rec.Clips, records.BatchClip{
			VideoName:  c.name,
			SessionKey: c.rec.SessionKey,
			Duration:   c.duration,
		})
		c.rec.InBatches[id] = i
	}
	b.Batches[id] = rec
	log.Info().Str("batch", filename).Int("clips", len(clips)).Float64("duration", actual).
		Msg("Batch created")
	return id, nil
}

const batchNameChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// batchFilename picks an unused <study>_<XXXXX>.mp4 name in the batch dir.
func (b *Batcher) batchFilename() (string, error) {
	existing, err := b.Layout.ListBatchFiles()
	if err != nil {
		return "", err
	}
	taken := make(map[string]bool, len(existing))
	for _, name := range existing {
		taken[name] = true
	}

	prefix := b.Settings.Nickname
	if prefix == "" {
		prefix = b.Settings.ID
	}
	for attempt := 0; attempt < 100; attempt++ {
		suffix := make([]byte, 5)
		for i := range suffix {
			suffix[i] = batchNameChars[rand.Intn(len(batchNameChars))]
		}
		name := prefix + "_" + string(suffix) + ".mp4"
		if !taken[name] {
			return name, nil
		}
	}
	return "", fmt.Errorf("could not find a free batch filename in %s", b.Layout.BatchDir)
}

// Remove deletes batches by id or filename ("all" removes every batch) and
// clears the membership back-references so their clips become eligible
// again. With deleteArtifacts set the batch videos are removed from disk.
func (b *Batcher) Remove(idOrFilename string, deleteArtifacts bool) error {
	var doomed []*records.BatchRecord
	if idOrFilename == "all" {
		for _, rec := range b.Batches {
			doomed = append(doomed, rec)
		}
	} else {
		for _, rec := range b.Batches {
			if rec.ID == idOrFilename || rec.Filename == idOrFilename {
				doomed = append(doomed, rec)
			}
		}
		if len(doomed) == 0 {
			return fmt.Errorf("no batch %q", idOrFilename)
		}
	}

	for _, rec := range doomed {
		for _, clip := range rec.Clips {
			if vid, ok := b.Videos[clip.VideoName]; ok {
				delete(vid.InBatches, rec.ID)
			}
		}
		delete(b.Batches, rec.ID)
		if deleteArtifacts {
			if err := os.Remove(filepath.Join(b.Layout.BatchDir, rec.Filename)); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("removing batch artifact %s: %w", rec.Filename, err)
			}
		}
		log.Info().Str("batch", rec.Filename).Msg("Batch removed")
	}
	return b.save()
}
