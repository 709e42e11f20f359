package study

import (
	"github.com/mekline/lookit-data-processing/internal/records"
)

// geometryStrategy covers the geometry study: expectations are simply every
// frame that recorded a videoId, and for each one the ordered set of unique
// event types is kept so coders can see the trial's structure at a glance.
// Clip trimming for this study is event-based (startCalibration) and handled
// by the trim setting, not here.
type geometryStrategy struct{}

func (geometryStrategy) ProcessCoding(coding *records.SessionCodingRecord, sess records.SessionRecord) {
	coding.VideosExpected = []string{}
	coding.UniqueEvents = [][]string{}

	for _, frameID := range records.SortedFrameIDs(sess.ExpData()) {
		frame := sess.Frame(frameID)
		videoID := records.FrameVideoID(frame)
		if videoID == "" {
			continue
		}
		coding.VideosExpected = append(coding.VideosExpected, videoID)
		coding.UniqueEvents = append(coding.UniqueEvents, uniqueEventsOrdered(records.FrameEvents(frame)))
	}
}

// uniqueEventsOrdered returns each event type once, in order of first
// occurrence.
func uniqueEventsOrdered(events []records.Event) []string {
	seen := make(map[string]bool, len(events))
	ordered := []string{}
	for _, e := range events {
		if !seen[e.Type] {
			seen[e.Type] = true
			ordered = append(ordered, e.Type)
		}
	}
	return ordered
}
