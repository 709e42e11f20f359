package ffmpegcmd

import (
	"strings"
	"testing"
)

func argsString(args []string) string {
	return strings.Join(args, " ")
}

func TestVideoRenderArgs(t *testing.T) {
	tests := []struct {
		name     string
		render   VideoRender
		contains []string
		excludes []string
	}{
		{
			name: "No trim",
			render: VideoRender{
				Input:   "in.flv",
				Output:  "out_video.mp4",
				Overlay: Overlay{Label: "1-video-consent_sess_12345_678"},
			},
			contains: []string{
				"-i in.flv",
				"drawtext=",
				"setpts=PTS-STARTPTS[v0]",
				"-map [v0]",
				"-c:v libx264",
				"-an",
				"-r 30",
				"out_video.mp4",
			},
			excludes: []string{",trim="},
		},
		{
			name: "Head trim",
			render: VideoRender{
				Input:       "in.flv",
				Output:      "out_video.mp4",
				Overlay:     Overlay{Label: "label"},
				StartOffset: 12.5,
			},
			contains: []string{"trim=12.5:,setpts=PTS-STARTPTS[v0]"},
		},
		{
			// The annotation filters run before the trim, so enable times stay
			// on the raw clip's timeline rather than being shifted by the trim.
			name: "Trimmed render keeps raw annotation times",
			render: VideoRender{
				Input:  "in.flv",
				Output: "out_video.mp4",
				Overlay: Overlay{
					Label:       "label",
					Annotations: []Annotation{{Text: "startTest", From: 10}},
				},
				StartOffset: 4,
			},
			contains: []string{
				"enable='gte(t,10)'",
				"trim=4:,setpts=PTS-STARTPTS[v0]",
			},
			excludes: []string{"gte(t,6)"},
		},
		{
			name: "Timed annotations",
			render: VideoRender{
				Input:  "in.flv",
				Output: "out_video.mp4",
				Overlay: Overlay{
					Label: "label",
					Annotations: []Annotation{
						{Text: "startCalibration", From: 1.5, Until: 4},
						{Text: "endCalibration", From: 4},
					},
				},
			},
			contains: []string{
				"enable='gte(t,1.5)*lt(t,4)'",
				"enable='gte(t,4)'",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := argsString(tt.render.Args())
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("args missing %q\nargs: %s", want, got)
				}
			}
			for _, bad := range tt.excludes {
				if strings.Contains(got, bad) {
					t.Errorf("args unexpectedly contain %q\nargs: %s", bad, got)
				}
			}
		})
	}
}

func TestAudioRenderArgs(t *testing.T) {
	got := argsString(AudioRender{Input: "in.flv", Output: "out_audio.m4a", StartOffset: 3}.Args())
	for _, want := range []string{
		"-i in.flv",
		"-vn",
		"atrim=3:,asetpts=PTS-STARTPTS",
		"apad=pad_len=100000",
		"-c:a aac",
		"out_audio.m4a",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("args missing %q\nargs: %s", want, got)
		}
	}

	noTrim := argsString(AudioRender{Input: "in.flv", Output: "out.m4a"}.Args())
	if strings.Contains(noTrim, "atrim") {
		t.Errorf("untrimmed audio render should not contain atrim, got: %s", noTrim)
	}
}

func TestMuxArgs(t *testing.T) {
	got := argsString(Mux{VideoInput: "v.mp4", AudioInput: "a.m4a", Output: "out.mp4"}.Args())
	for _, want := range []string{"-i v.mp4", "-i a.m4a", "-c:v copy", "-c:a copy", "-shortest", "out.mp4"} {
		if !strings.Contains(got, want) {
			t.Errorf("args missing %q\nargs: %s", want, got)
		}
	}
}

func TestConcatArgs(t *testing.T) {
	tests := []struct {
		name      string
		withAudio bool
		filter    string
	}{
		{"With audio", true, "[0:0][0:1][1:0][1:1]concat=n=2:v=1:a=1[out]"},
		{"Video only", false, "[0:0][1:0]concat=n=2:v=1:a=0[out]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := Concat{Inputs: []string{"a.mp4", "b.mp4"}, Output: "joined.mp4", WithAudio: tt.withAudio}
			got := argsString(c.Args())
			if !strings.Contains(got, tt.filter) {
				t.Errorf("args missing filter %q\nargs: %s", tt.filter, got)
			}
			if !strings.Contains(got, "-i a.mp4 -i b.mp4") {
				t.Errorf("args missing inputs in order: %s", got)
			}
		})
	}
}

func TestEscapeText(t *testing.T) {
	got := escapeText(`11-pref:phys'videos`)
	if got != `11-pref\:phys\'videos` {
		t.Errorf("escapeText = %q", got)
	}
}
