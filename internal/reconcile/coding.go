package reconcile

import (
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mekline/lookit-data-processing/internal/records"
)

// UpdateCoding brings the coding records in step with the fetched session
// data: existing records are backfilled to the current schema, new sessions
// get an empty template, and every record's expected-video list is rederived
// (through the study's coding strategy when one is configured).
func (r *Reconciler) UpdateCoding() (newSessions int, err error) {
	for key, sess := range r.Sessions {
		coding, ok := r.Coding[key]
		if !ok {
			coding = records.EmptySessionCoding()
			r.Coding[key] = coding
			newSessions++
			log.Info().Str("session", key).Msg("New session to code")
		} else if coding.Backfill() {
			log.Debug().Str("session", key).Msg("Coding record backfilled")
		}

		if r.Strategies.Coding != nil {
			r.Strategies.Coding.ProcessCoding(coding, sess)
		} else {
			coding.VideosExpected = expectedVideos(sess)
		}
		updateWithdrawn(coding, sess)
	}

	if err := r.SaveCoding(); err != nil {
		return 0, err
	}
	log.Info().Int("new", newSessions).Int("total", len(r.Coding)).Msg("Coding updated")
	return newSessions, nil
}

// expectedVideos is the generic expectation rule: every frame that recorded
// a videoId, in presentation order.
func expectedVideos(sess records.SessionRecord) []string {
	expected := []string{}
	for _, frameID := range records.SortedFrameIDs(sess.ExpData()) {
		if id := records.FrameVideoID(sess.Frame(frameID)); id != "" {
			expected = append(expected, id)
		}
	}
	return expected
}

// updateWithdrawn reads the exit survey's withdrawal answer, when present.
// Sessions abandoned before the exit survey keep an undetermined status.
func updateWithdrawn(coding *records.SessionCodingRecord, sess records.SessionRecord) {
	for _, frameID := range records.SortedFrameIDs(sess.ExpData()) {
		if !strings.Contains(frameID, "exit-survey") {
			continue
		}
		if w, ok := sess.Frame(frameID)["withdrawal"].(bool); ok {
			coding.Withdrawn = &w
			return
		}
	}
}
