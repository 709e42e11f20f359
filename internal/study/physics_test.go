package study

import (
	"reflect"
	"testing"

	"github.com/mekline/lookit-data-processing/internal/records"
)

func eventList(types ...string) []any {
	events := make([]any, len(types))
	for i, t := range types {
		events[i] = map[string]any{"eventType": t, "streamTime": float64(i)}
	}
	return events
}

func physicsSession(frames map[string]any) records.SessionRecord {
	return records.SessionRecord{
		ID:         "sess1",
		Attributes: map[string]any{"expData": frames},
	}
}

func TestPhysicsProcessCoding(t *testing.T) {
	sess := physicsSession(map[string]any{
		"1-video-consent": map[string]any{
			"videoId":      "consent-vid",
			"eventTimings": eventList(),
		},
		// Clean trial: test video started, never paused.
		"5-pref-phys-videos": map[string]any{
			"videoId":      "trial5-vid",
			"eventTimings": eventList("exp-physics:startIntro", evStartTest),
			"videosShown": []any{
				"https://stimuli.example.org/sbs_stay_near_hammer_c2_green_NN.mp4",
				"https://stimuli.example.org/sbs_fall_near_hammer_c2_green_NN.mp4",
			},
		},
		// Paused, then the alternate ran to completion.
		"11-pref-phys-videos": map[string]any{
			"videoId":      "trial11-vid",
			"eventTimings": eventList(evStartTest, evPause, evStartAlternate),
			"videosShown": []any{
				"https://stimuli.example.org/sbs_stay_far_box_c1_blue_NN.mp4",
				"https://stimuli.example.org/sbs_fall_far_box_c1_blue_NN.mp4",
			},
		},
		// Never reached either video.
		"14-pref-phys-videos": map[string]any{
			"videoId":      "trial14-vid",
			"eventTimings": eventList("exp-physics:startIntro"),
		},
		// The known broken frame must not produce an expectation.
		"32-32-pref-phys-videos": map[string]any{
			"videoId":      "ghost-vid",
			"eventTimings": eventList(),
		},
		"40-exit-survey": map[string]any{},
	})

	var coding records.SessionCodingRecord
	physicsStrategy{}.ProcessCoding(&coding, sess)

	wantExpected := []string{"consent-vid", "trial5-vid", "trial11-vid", "trial14-vid"}
	if !reflect.DeepEqual(coding.VideosExpected, wantExpected) {
		t.Fatalf("VideosExpected = %v, want %v", coding.VideosExpected, wantExpected)
	}

	// Consent frame gets no judgment.
	if coding.ShowedAlternate[0] != nil || coding.EndedEarly[0] != nil {
		t.Error("consent frame should be unjudged")
	}
	// Clean trial: no alternate, not ended early, first stimulus shown.
	if *coding.ShowedAlternate[1] || *coding.EndedEarly[1] {
		t.Errorf("clean trial judged wrong: alt=%v early=%v", *coding.ShowedAlternate[1], *coding.EndedEarly[1])
	}
	if coding.VideosShown[1] != "sbs_stay_near_hammer_c2_green_NN" {
		t.Errorf("VideosShown[1] = %q", coding.VideosShown[1])
	}
	// Alternate trial: alternate shown, completed, second stimulus shown.
	if !*coding.ShowedAlternate[2] || *coding.EndedEarly[2] {
		t.Errorf("alternate trial judged wrong: alt=%v early=%v", *coding.ShowedAlternate[2], *coding.EndedEarly[2])
	}
	if coding.VideosShown[2] != "sbs_fall_far_box_c1_blue_NN" {
		t.Errorf("VideosShown[2] = %q", coding.VideosShown[2])
	}
	// Abandoned trial ended early.
	if !*coding.EndedEarly[3] {
		t.Error("abandoned trial should be ended early")
	}
}

func TestClassifyTrial(t *testing.T) {
	tests := []struct {
		name      string
		events    []string
		wantAlt   bool
		wantEarly bool
	}{
		{"Test video only", []string{evStartTest}, false, false},
		{"Neither video started", []string{"exp-physics:startIntro"}, false, true},
		{"Alternate completed", []string{evStartTest, evPause, evStartAlternate}, true, false},
		{"Alternate also paused", []string{evStartTest, evPause, evStartAlternate, evPause}, true, true},
		{"Paused test, no alternate", []string{evStartTest, evPause}, false, true},
		{"Pause before test is fine", []string{evPause, evStartTest}, false, false},
		{"Only alternate shown", []string{evStartAlternate}, true, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := make([]records.Event, len(tt.events))
			for i, ty := range tt.events {
				events[i] = records.Event{Type: ty}
			}
			alt, early := classifyTrial(events)
			if alt != tt.wantAlt || early != tt.wantEarly {
				t.Errorf("classifyTrial = (%v, %v), want (%v, %v)", alt, early, tt.wantAlt, tt.wantEarly)
			}
		})
	}
}

func TestPhysicsFilterClips(t *testing.T) {
	tr, fa := true, false
	coding := &records.SessionCodingRecord{
		EndedEarly: []*bool{nil, &fa, &tr},
	}
	clips := []ConcatClip{
		{VideoName: "consent.flv", ExpectedIndex: 0},
		{VideoName: "trial-ok.flv", ExpectedIndex: 1},
		{VideoName: "trial-early.flv", ExpectedIndex: 2},
	}
	kept := physicsStrategy{}.FilterClips(clips, coding)
	if len(kept) != 2 || kept[0].VideoName != "consent.flv" || kept[1].VideoName != "trial-ok.flv" {
		t.Errorf("FilterClips kept %v", kept)
	}
}

func TestPhysicsProcessConcat(t *testing.T) {
	tr := true
	coding := &records.SessionCodingRecord{
		ShowedAlternate: []*bool{nil, &tr},
		VideosShown:     []string{"", "sbs_fall_far_box_c1_blue_NN"},
	}
	clips := []ConcatClip{
		{VideoName: "b.flv", ExpectedIndex: 1},
		{VideoName: "a.flv", ExpectedIndex: 0},
	}
	physicsStrategy{}.ProcessConcat(coding, clips)

	if len(coding.ConcatShowedAlternate) != 2 || coding.ConcatShowedAlternate[0] == nil || !*coding.ConcatShowedAlternate[0] {
		t.Errorf("ConcatShowedAlternate = %v", coding.ConcatShowedAlternate)
	}
	want := []string{"sbs_fall_far_box_c1_blue_NN", ""}
	if !reflect.DeepEqual(coding.ConcatVideosShown, want) {
		t.Errorf("ConcatVideosShown = %v", coding.ConcatVideosShown)
	}
}

func TestGeometryProcessCoding(t *testing.T) {
	sess := physicsSession(map[string]any{
		"2-alt-trials": map[string]any{
			"videoId": "geo-vid",
			"eventTimings": eventList(
				"exp-geometry:startCalibration",
				"exp-geometry:startTrial",
				"exp-geometry:startTrial",
				"exp-geometry:endTrial",
			),
		},
		"1-intro": map[string]any{},
	})

	var coding records.SessionCodingRecord
	geometryStrategy{}.ProcessCoding(&coding, sess)

	if !reflect.DeepEqual(coding.VideosExpected, []string{"geo-vid"}) {
		t.Fatalf("VideosExpected = %v", coding.VideosExpected)
	}
	want := []string{"exp-geometry:startCalibration", "exp-geometry:startTrial", "exp-geometry:endTrial"}
	if !reflect.DeepEqual(coding.UniqueEvents[0], want) {
		t.Errorf("UniqueEvents = %v, want %v", coding.UniqueEvents[0], want)
	}
}
