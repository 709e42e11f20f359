package videoname

import (
	"errors"
	"testing"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     Identifier
	}{
		{
			name:     "Consent clip",
			filename: "videoStream_583c892ec0d9d70082123d94_1-video-consent_58474acfc0d9d70082123db6_1481233949736_405.flv",
			want: Identifier{
				StudyID:   "583c892ec0d9d70082123d94",
				FrameID:   "1-video-consent",
				SessionID: "58474acfc0d9d70082123db6",
				Timestamp: "1481233949736_405",
				ShortName: "583c892ec0d9d70082123d94_1-video-consent_58474acfc0d9d70082123db6",
			},
		},
		{
			name:     "Trial clip",
			filename: "videoStream_583c892ec0d9d70082123d94_11-pref-phys-videos_58474acfc0d9d70082123db6_1481234567890_012.flv",
			want: Identifier{
				StudyID:   "583c892ec0d9d70082123d94",
				FrameID:   "11-pref-phys-videos",
				SessionID: "58474acfc0d9d70082123db6",
				Timestamp: "1481234567890_012",
				ShortName: "583c892ec0d9d70082123d94_11-pref-phys-videos_58474acfc0d9d70082123db6",
			},
		},
		{
			name:     "Preview clip",
			filename: "videoStream_57586a553de08a005bb8fb7f_1-video-consent_PREVIEW_DATA_DISREGARD_1465935820244_351.flv",
			want: Identifier{
				StudyID:   "57586a553de08a005bb8fb7f",
				FrameID:   "1-video-consent",
				SessionID: PreviewSentinel,
				Timestamp: "1465935820244_351",
				ShortName: "57586a553de08a005bb8fb7f_1-video-consent_PREVIEW_DATA_DISREGARD",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.filename)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.filename, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %+v, want %+v", tt.filename, got, tt.want)
			}
		})
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name     string
		filename string
	}{
		{"Wrong extension", "videoStream_study_frame_sess_123_456.mp4"},
		{"Too few pieces", "videoStream_study_123.flv"},
		{"Old dash-delimited scheme", "videoStream-study-frame-sess-123-456.flv"},
		{"Empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.filename)
			if !errors.Is(err, ErrMalformedName) {
				t.Errorf("Parse(%q) error = %v, want ErrMalformedName", tt.filename, err)
			}
		})
	}
}

// The short name reconstructed from a filename must exactly equal the video
// id the session's frame data declares as expected, so expected/received
// matching can be done by string comparison alone.
func TestParseShortNameRoundTrip(t *testing.T) {
	expected := "583c892ec0d9d70082123d94_11-pref-phys-videos_58474acfc0d9d70082123db6"
	filename := "videoStream_" + expected + "_1481234567890_012.flv"

	id, err := Parse(filename)
	if err != nil {
		t.Fatalf("Parse(%q) error: %v", filename, err)
	}
	if id.ShortName != expected {
		t.Errorf("ShortName = %q, want %q", id.ShortName, expected)
	}
	if !Matches(id.ShortName, expected) {
		t.Error("Matches() = false for exact short name")
	}
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name      string
		shortName string
		expected  string
		want      bool
	}{
		{"Exact", "study_frame_sess", "study_frame_sess", true},
		{"Containment (newer scheme)", "study_frame_sess", "study_frame_sess_extraqualifier", true},
		{"No match", "study_frame_sess", "study_otherframe_sess", false},
		{"Expected shorter than short name", "study_frame_sess", "study_frame", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Matches(tt.shortName, tt.expected); got != tt.want {
				t.Errorf("Matches(%q, %q) = %v, want %v", tt.shortName, tt.expected, got, tt.want)
			}
		})
	}
}
