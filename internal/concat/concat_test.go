package concat

import (
	"strings"
	"testing"

	"github.com/mekline/lookit-data-processing/internal/ffmpegcmd"
	"github.com/mekline/lookit-data-processing/internal/probe"
)

const withAudioJSON = `{
	"streams": [
		{"codec_type": "video", "duration": "10.0"},
		{"codec_type": "audio", "duration": "10.0"}
	],
	"format": {"duration": "10.0"}
}`

const videoOnlyJSON = `{
	"streams": [{"codec_type": "video", "duration": "10.0"}],
	"format": {"duration": "10.0"}
}`

const joinedJSON = `{
	"streams": [{"codec_type": "video", "duration": "20.25"}],
	"format": {"duration": "20.25"}
}`

func concatCall(t *testing.T, fake *ffmpegcmd.FakeRunner) string {
	t.Helper()
	for _, c := range fake.Calls {
		if c.Name == "ffmpeg" {
			return strings.Join(c.Args, " ")
		}
	}
	t.Fatal("no ffmpeg invocation recorded")
	return ""
}

func TestJoinEmptyInput(t *testing.T) {
	fake := &ffmpegcmd.FakeRunner{}
	j := New(fake, probe.New(fake, "/videos"))

	dur, err := j.Join(nil, "/sessions/out.mp4")
	if err != nil || dur != 0 {
		t.Errorf("Join(nil) = (%v, %v), want (0, nil)", dur, err)
	}
	if len(fake.Calls) != 0 {
		t.Errorf("empty join ran %d commands", len(fake.Calls))
	}
}

func TestJoinAllClipsHaveAudio(t *testing.T) {
	fake := &ffmpegcmd.FakeRunner{Respond: map[string]string{
		"a.mp4":   withAudioJSON,
		"b.mp4":   withAudioJSON,
		"out.mp4": joinedJSON,
	}}
	j := New(fake, probe.New(fake, "/videos"))

	dur, err := j.Join([]string{"/s/a.mp4", "/s/b.mp4"}, "/s/out.mp4")
	if err != nil {
		t.Fatalf("Join: %v", err)
	}
	if dur != 20.25 {
		t.Errorf("duration = %v, want 20.25", dur)
	}
	if got := concatCall(t, fake); !strings.Contains(got, "concat=n=2:v=1:a=1") {
		t.Errorf("expected audio concat: %s", got)
	}
}

func TestJoinDegradesToVideoOnly(t *testing.T) {
	fake := &ffmpegcmd.FakeRunner{Respond: map[string]string{
		"a.mp4":   withAudioJSON,
		"b.mp4":   videoOnlyJSON,
		"out.mp4": joinedJSON,
	}}
	j := New(fake, probe.New(fake, "/videos"))

	if _, err := j.Join([]string{"/s/a.mp4", "/s/b.mp4"}, "/s/out.mp4"); err != nil {
		t.Fatal(err)
	}
	if got := concatCall(t, fake); !strings.Contains(got, "concat=n=2:v=1:a=0") {
		t.Errorf("expected video-only concat: %s", got)
	}
}

func TestJoinCommandFailure(t *testing.T) {
	fake := &ffmpegcmd.FakeRunner{
		Respond: map[string]string{"a.mp4": withAudioJSON},
		Fail:    map[string]string{"concat": "filter error"},
	}
	j := New(fake, probe.New(fake, "/videos"))

	if _, err := j.Join([]string{"/s/a.mp4"}, "/s/out.mp4"); err == nil {
		t.Error("expected error from failed concat")
	}
}
