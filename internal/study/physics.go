package study

import (
	"path"
	"strings"

	"github.com/mekline/lookit-data-processing/internal/records"
)

// physicsStrategy implements the preferential-looking physics study's trial
// classification: per test trial, whether the alternate test video ended up
// being shown and whether the trial was cut short, plus which stimulus file
// was actually on screen. Trials that ended early are excluded from the
// session concatenation.
type physicsStrategy struct{}

const (
	evStartTest      = "exp-physics:startTestVideo"
	evStartAlternate = "exp-physics:startAlternateVideo"
	evPause          = "exp-physics:pauseVideo"
)

// brokenPhysicsFrame is a frame that recorded a videoId despite never
// capturing video; it is skipped when deriving expectations.
const brokenPhysicsFrame = "32-32-pref-phys-videos"

func (physicsStrategy) ProcessCoding(coding *records.SessionCodingRecord, sess records.SessionRecord) {
	coding.VideosExpected = []string{}
	coding.ShowedAlternate = []*bool{}
	coding.EndedEarly = []*bool{}
	coding.VideosShown = []string{}

	for _, frameID := range records.SortedFrameIDs(sess.ExpData()) {
		frame := sess.Frame(frameID)
		videoID := records.FrameVideoID(frame)
		if videoID == "" || frameID == brokenPhysicsFrame {
			continue
		}

		var showedAlternate, endedEarly *bool
		videoShown := ""
		if strings.Contains(frameID, "pref-phys-videos") {
			show, ended := classifyTrial(records.FrameEvents(frame))
			showedAlternate, endedEarly = &show, &ended
			videoShown = shownStimulus(frame, show)
		}

		coding.VideosExpected = append(coding.VideosExpected, videoID)
		coding.ShowedAlternate = append(coding.ShowedAlternate, showedAlternate)
		coding.EndedEarly = append(coding.EndedEarly, endedEarly)
		coding.VideosShown = append(coding.VideosShown, videoShown)
	}
}

// classifyTrial inspects a test trial's event timeline. A trial ended early
// if neither the test nor the alternate video ever started, if the alternate
// was paused after it last started, or if the test video was paused without
// the alternate ever starting.
func classifyTrial(events []records.Event) (showedAlternate, endedEarly bool) {
	types := make([]string, len(events))
	for i, e := range events {
		types[i] = e.Type
	}

	showedAlternate = contains(types, evStartAlternate)
	endedEarly = !contains(types, evStartTest) && !showedAlternate

	if showedAlternate {
		last := lastIndex(types, evStartAlternate)
		endedEarly = endedEarly || contains(types[last:], evPause)
	}
	if !endedEarly && contains(types, evPause) && contains(types, evStartTest) {
		lastPause := lastIndex(types, evPause)
		firstTest := firstIndex(types, evStartTest)
		endedEarly = endedEarly || (lastPause > firstTest && !showedAlternate)
	}
	return showedAlternate, endedEarly
}

// shownStimulus returns the basename (no extension) of the stimulus that was
// on screen: the second listed video when the alternate was shown.
func shownStimulus(frame map[string]any, showedAlternate bool) string {
	raw, _ := frame["videosShown"].([]any)
	idx := 0
	if showedAlternate {
		idx = 1
	}
	if idx >= len(raw) {
		return ""
	}
	src, _ := raw[idx].(string)
	if src == "" {
		return ""
	}
	base := path.Base(src)
	return strings.TrimSuffix(base, path.Ext(base))
}

// FilterClips drops clips whose trial ended early. Clips matched to frames
// the classifier left unjudged (consent, preview) are kept.
func (physicsStrategy) FilterClips(clips []ConcatClip, coding *records.SessionCodingRecord) []ConcatClip {
	kept := make([]ConcatClip, 0, len(clips))
	for _, c := range clips {
		if c.ExpectedIndex < len(coding.EndedEarly) {
			if ended := coding.EndedEarly[c.ExpectedIndex]; ended != nil && *ended {
				continue
			}
		}
		kept = append(kept, c)
	}
	return kept
}

// ProcessConcat projects the per-trial classifications onto the clips that
// actually entered the concatenation, in playback order.
func (physicsStrategy) ProcessConcat(coding *records.SessionCodingRecord, clips []ConcatClip) {
	coding.ConcatShowedAlternate = make([]*bool, len(clips))
	coding.ConcatVideosShown = make([]string, len(clips))
	for i, c := range clips {
		if c.ExpectedIndex < len(coding.ShowedAlternate) {
			coding.ConcatShowedAlternate[i] = coding.ShowedAlternate[c.ExpectedIndex]
		}
		if c.ExpectedIndex < len(coding.VideosShown) {
			coding.ConcatVideosShown[i] = coding.VideosShown[c.ExpectedIndex]
		}
	}
}

func contains(ss []string, want string) bool {
	return firstIndex(ss, want) >= 0
}

func firstIndex(ss []string, want string) int {
	for i, s := range ss {
		if s == want {
			return i
		}
	}
	return -1
}

func lastIndex(ss []string, want string) int {
	for i := len(ss) - 1; i >= 0; i-- {
		if ss[i] == want {
			return i
		}
	}
	return -1
}
