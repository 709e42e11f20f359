// Package ffmpegcmd builds the exact ffmpeg invocations the pipeline needs:
// labeled/trimmed video-only renders, padded audio-only renders, remuxing,
// and filter-graph concatenation. It is the only package that knows ffmpeg's
// argument and filter syntax; everything above it works with typed specs.
package ffmpegcmd

import (
	"fmt"
	"strings"
)

// FontFile is the font used for burned-in text labels.
const FontFile = "/Library/Fonts/Arial Black.ttf"

// TrimKind selects how a clip's start offset is computed.
type TrimKind int

const (
	// TrimNone keeps the whole clip.
	TrimNone TrimKind = iota
	// TrimFromStart drops the first Seconds seconds.
	TrimFromStart
	// TrimKeepTail keeps only the last Seconds seconds (or the whole clip if
	// it is shorter than that).
	TrimKeepTail
	// TrimAtEvent starts at the first recorded event whose name ends with
	// EventSuffix; falls back to no trimming when no such event exists.
	TrimAtEvent
)

// TrimSpec describes the requested trim for one clip. The concrete start
// offset is resolved by the transform engine, which knows the clip duration
// and its event timeline; this package only renders resolved offsets.
type TrimSpec struct {
	Kind        TrimKind
	Seconds     float64
	EventSuffix string
}

// NoTrim is the zero trim specification.
var NoTrim = TrimSpec{Kind: TrimNone}

// Annotation is a timed text overlay: visible from From until Until seconds
// of stream time. The last annotation of a clip uses Until <= 0, meaning
// "until the end of the clip".
type Annotation struct {
	Text  string
	From  float64
	Until float64
}

// Overlay is the burned-in labeling for a processed clip: a fixed identifier
// label in the top-left corner plus optional timed event annotations below it.
type Overlay struct {
	Label       string
	Annotations []Annotation
}

// fmtSeconds renders a stream-time offset for a filter expression.
func fmtSeconds(s float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", s), "0"), ".")
}

// escapeText escapes characters that terminate a drawtext text= value.
func escapeText(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	s = strings.ReplaceAll(s, `:`, `\:`)
	return s
}

// VideoRender renders a silent, labeled, optionally head-trimmed video-only
// stream from one raw clip.
type VideoRender struct {
	Input   string
	Output  string
	Overlay Overlay
	// StartOffset > 0 drops everything before that stream time.
	StartOffset float64
}

// Args returns the ffmpeg argv (without the leading program name).
func (r VideoRender) Args() []string {
	var filter strings.Builder
	filter.WriteString("[0:v]drawtext='fontfile=")
	filter.WriteString(FontFile)
	filter.WriteString("':text='")
	filter.WriteString(escapeText(r.Overlay.Label))
	filter.WriteString("':fontsize=12:fontcolor=red:x=10:y=10")
	for _, a := range r.Overlay.Annotations {
		filter.WriteString(",drawtext='fontfile=")
		filter.WriteString(FontFile)
		filter.WriteString("':text='")
		filter.WriteString(escapeText(a.Text))
		filter.WriteString("':fontsize=12:fontcolor=red:x=10:y=30:enable='gte(t,")
		filter.WriteString(fmtSeconds(a.From))
		if a.Until > 0 {
			filter.WriteString(")*lt(t,")
			filter.WriteString(fmtSeconds(a.Until))
		}
		filter.WriteString(")'")
	}
	filter.WriteString(",setpts=PTS-STARTPTS")
	if r.StartOffset > 0 {
		filter.WriteString(",trim=")
		filter.WriteString(fmtSeconds(r.StartOffset))
		filter.WriteString(":,setpts=PTS-STARTPTS")
	}
	filter.WriteString("[v0]")

	return []string{
		"-i", r.Input,
		"-filter_complex", filter.String(),
		"-map", "[v0]",
		"-c:v", "libx264", "-an", "-vsync", "cfr", "-r", "30", "-crf", "18",
		"-loglevel", "error", "-y", r.Output,
	}
}

// AudioRender renders an optionally head-trimmed audio-only stream, padded
// with trailing silence so the later mux is never limited by audio ending
// before video.
type AudioRender struct {
	Input       string
	Output      string
	StartOffset float64
}

// Args returns the ffmpeg argv.
func (r AudioRender) Args() []string {
	var filter strings.Builder
	filter.WriteString("[0:a]asetpts=PTS-STARTPTS,")
	if r.StartOffset > 0 {
		filter.WriteString("atrim=")
		filter.WriteString(fmtSeconds(r.StartOffset))
		filter.WriteString(":,asetpts=PTS-STARTPTS,")
	}
	filter.WriteString("apad=pad_len=100000")

	return []string{
		"-i", r.Input,
		"-vn",
		"-filter_complex", filter.String(),
		"-c:a", "aac",
		"-loglevel", "error", "-y", r.Output,
	}
}

// Mux combines a video-only and an audio-only stream into one container,
// truncated to the shorter stream (by construction the video one, since the
// audio stream is silence-padded).
type Mux struct {
	VideoInput string
	AudioInput string
	Output     string
}

// Args returns the ffmpeg argv.
func (m Mux) Args() []string {
	return []string{
		"-i", m.VideoInput,
		"-i", m.AudioInput,
		"-c:v", "copy", "-c:a", "copy", "-shortest",
		"-loglevel", "error", "-y", m.Output,
	}
}

// Concat joins processed clips in order via the concat filter. WithAudio
// selects between joining both streams and joining video only; mixed inputs
// are the caller's responsibility to avoid.
type Concat struct {
	Inputs    []string
	Output    string
	WithAudio bool
}

// Args returns the ffmpeg argv.
func (c Concat) Args() []string {
	args := make([]string, 0, 2*len(c.Inputs)+8)
	var streams strings.Builder
	for i, in := range c.Inputs {
		args = append(args, "-i", in)
		if c.WithAudio {
			fmt.Fprintf(&streams, "[%d:0][%d:1]", i, i)
		} else {
			fmt.Fprintf(&streams, "[%d:0]", i)
		}
	}
	audioFlag := 0
	if c.WithAudio {
		audioFlag = 1
	}
	filter := fmt.Sprintf("%sconcat=n=%d:v=1:a=%d[out]", streams.String(), len(c.Inputs), audioFlag)
	args = append(args,
		"-filter_complex", filter,
		"-map", "[out]",
		"-loglevel", "error", "-y", c.Output,
	)
	return args
}
