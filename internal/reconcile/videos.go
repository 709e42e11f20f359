package reconcile

import (
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/mekline/lookit-data-processing/internal/paths"
	"github.com/mekline/lookit-data-processing/internal/probe"
	"github.com/mekline/lookit-data-processing/internal/records"
	"github.com/mekline/lookit-data-processing/internal/videoname"
)

// VideoScan reports the outcome of an UpdateVideoData pass.
type VideoScan struct {
	// SessionsAffected lists session keys that gained or refreshed videos.
	SessionsAffected []string
	// Improper lists filenames that do not follow the naming convention.
	Improper []string
	// Unmatched lists parseable filenames whose session is not in the
	// fetched session data.
	Unmatched []string
}

// UpdateVideoData scans the video directory and creates or refreshes a
// record for every raw upload belonging to this study. With replace set,
// existing records are re-probed and their processed-clip results cleared.
func (r *Reconciler) UpdateVideoData(replace bool) (*VideoScan, error) {
	names, err := r.Layout.ListVideos()
	if err != nil {
		return nil, err
	}

	scan := &VideoScan{}
	affected := map[string]bool{}
	for _, name := range names {
		id, err := videoname.Parse(name)
		if err != nil {
			if errors.Is(err, videoname.ErrMalformedName) {
				log.Warn().Str("file", name).Msg("Improperly named video file")
				scan.Improper = append(scan.Improper, name)
				continue
			}
			return nil, fmt.Errorf("parsing video name %s: %w", name, err)
		}
		if id.SessionID == videoname.PreviewSentinel {
			log.Debug().Str("file", name).Msg("Preview recording, ignoring")
			continue
		}
		if id.StudyID != r.Settings.ID {
			continue
		}

		key := paths.SessionKey(id.StudyID, id.SessionID)
		if _, ok := r.Sessions[key]; !ok {
			log.Warn().Str("file", name).Str("session", key).
				Msg("Video does not match any fetched session")
			scan.Unmatched = append(scan.Unmatched, name)
			continue
		}

		rec, exists := r.Videos[name]
		if exists && !replace {
			continue
		}
		if !exists {
			rec = records.NewRawVideoRecord(id.ShortName, key)
			r.Videos[name] = rec
		} else {
			rec.ShortName = id.ShortName
			rec.SessionKey = key
			rec.ClearClips()
		}

		vals := r.Prober.Get(name, probe.NFrames, probe.Duration, probe.BitRate)
		nframes, dur, bitrate := vals[0], vals[1], vals[2]
		rec.Duration = dur
		rec.Bitrate = bitrate
		if dur > 0 {
			rec.Framerate = nframes / dur
		}
		affected[key] = true
	}

	for key := range affected {
		scan.SessionsAffected = append(scan.SessionsAffected, key)
	}
	sort.Strings(scan.SessionsAffected)

	if err := r.SaveVideos(); err != nil {
		return nil, err
	}
	log.Info().Int("sessions", len(scan.SessionsAffected)).
		Int("improper", len(scan.Improper)).Int("unmatched", len(scan.Unmatched)).
		Msg("Video data updated")
	return scan, nil
}

// UpdateVideosFound rebuilds, for every coding record, the groups of raw
// videos matched to each expected video. Group i always corresponds to
// expected video i, even when empty.
func (r *Reconciler) UpdateVideosFound() error {
	for key, coding := range r.Coding {
		found := make([][]string, len(coding.VideosExpected))
		for i, expected := range coding.VideosExpected {
			group := []string{}
			for name, rec := range r.Videos {
				if rec.SessionKey != key {
					continue
				}
				if videoname.Matches(rec.ShortName, expected) {
					group = append(group, name)
				}
			}
			sort.Strings(group)
			if len(group) == 0 {
				log.Warn().Str("session", key).Str("expected", expected).
					Msg("No video found for expected recording")
			}
			found[i] = group
		}
		coding.VideosFound = found
	}
	return r.SaveCoding()
}
