// Package probe wraps ffprobe's inspection mode. One invocation per file
// yields every attribute the pipeline asks about; missing streams come back
// as 0 and a failed invocation as -1, because probing runs inside long batch
// loops where a single unreadable file must not abort the run.
package probe

import (
	"encoding/json"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/mekline/lookit-data-processing/internal/ffmpegcmd"
)

// Attr names one probe-able attribute of a media file.
type Attr string

const (
	// Duration is the container duration in seconds.
	Duration Attr = "duration"
	// BitRate is the overall bit rate in bits per second.
	BitRate Attr = "bitrate"
	// StartTime is the container start time in seconds.
	StartTime Attr = "starttime"
	// Height is the video frame height in pixels.
	Height Attr = "height"
	// Width is the video frame width in pixels.
	Width Attr = "width"
	// NFrames is the video stream frame count.
	NFrames Attr = "nframes"
	// VidDuration is the video stream duration in seconds.
	VidDuration Attr = "vidduration"
	// AudDuration is the audio stream duration in seconds.
	AudDuration Attr = "audduration"
)

// ffprobeOutput mirrors the JSON structure ffprobe prints.
type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration  string `json:"duration"`
	StartTime string `json:"start_time"`
	BitRate   string `json:"bit_rate"`
}

type ffprobeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	Duration     string `json:"duration"`
	NBFrames     string `json:"nb_frames"`
	AvgFrameRate string `json:"avg_frame_rate"`
}

// Prober answers attribute queries about media files by shelling out to
// ffprobe through a Runner.
type Prober struct {
	runner   ffmpegcmd.Runner
	videoDir string
}

// New returns a Prober that resolves bare filenames into videoDir.
func New(runner ffmpegcmd.Runner, videoDir string) *Prober {
	return &Prober{runner: runner, videoDir: videoDir}
}

// resolve turns a bare raw-video name into a full path; anything already
// containing a path separator is used as-is.
func (p *Prober) resolve(file string) string {
	if strings.ContainsRune(file, filepath.Separator) {
		return file
	}
	return filepath.Join(p.videoDir, file)
}

// Get probes the file once and extracts all requested attributes, in order.
//
// Attributes that need a video or audio stream return 0 (with a warning)
// when that stream is absent; callers treat 0 as "feature unusable". If
// ffprobe itself cannot be run, every requested attribute is -1.
func (p *Prober) Get(file string, attrs ...Attr) []float64 {
	path := p.resolve(file)
	out, err := p.runner.Run("ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	vals := make([]float64, len(attrs))
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("ffprobe invocation failed")
		for i := range vals {
			vals[i] = -1
		}
		return vals
	}

	var probed ffprobeOutput
	if err := json.Unmarshal(out, &probed); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Could not parse ffprobe output")
		for i := range vals {
			vals[i] = -1
		}
		return vals
	}

	for i, attr := range attrs {
		vals[i] = extract(&probed, attr, path)
	}
	return vals
}

// GetOne is Get for a single attribute.
func (p *Prober) GetOne(file string, attr Attr) float64 {
	return p.Get(file, attr)[0]
}

// HasAudio reports whether the file contains an audio stream. A clip that
// cannot be probed counts as having no audio, which downgrades any
// concatenation it joins to video-only rather than failing it.
func (p *Prober) HasAudio(file string) bool {
	path := p.resolve(file)
	out, err := p.runner.Run("ffprobe",
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		path,
	)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("ffprobe invocation failed, assuming no audio")
		return false
	}
	var probed ffprobeOutput
	if err := json.Unmarshal(out, &probed); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Could not parse ffprobe output, assuming no audio")
		return false
	}
	return findStream(&probed, "audio") != nil
}

func findStream(p *ffprobeOutput, codecType string) *ffprobeStream {
	for i := range p.Streams {
		if p.Streams[i].CodecType == codecType {
			return &p.Streams[i]
		}
	}
	return nil
}

func parseFloat(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

// parseRate parses an ffprobe rational like "30/1" into a float.
func parseRate(s string) float64 {
	parts := strings.Split(s, "/")
	if len(parts) == 2 {
		num := parseFloat(parts[0])
		den := parseFloat(parts[1])
		if den != 0 {
			return num / den
		}
		return 0
	}
	return parseFloat(s)
}

func extract(p *ffprobeOutput, attr Attr, path string) float64 {
	switch attr {
	case Duration:
		return parseFloat(p.Format.Duration)
	case StartTime:
		return parseFloat(p.Format.StartTime)
	case BitRate:
		return parseFloat(p.Format.BitRate)
	}

	var stream *ffprobeStream
	switch attr {
	case Height, Width, NFrames, VidDuration:
		stream = findStream(p, "video")
		if stream == nil {
			log.Warn().Str("path", path).Str("attr", string(attr)).Msg("No video stream")
			return 0
		}
	case AudDuration:
		stream = findStream(p, "audio")
		if stream == nil {
			log.Warn().Str("path", path).Str("attr", string(attr)).Msg("No audio stream")
			return 0
		}
	default:
		log.Warn().Str("attr", string(attr)).Msg("Unknown probe attribute")
		return 0
	}

	switch attr {
	case Height:
		return float64(stream.Height)
	case Width:
		return float64(stream.Width)
	case VidDuration, AudDuration:
		if stream.Duration != "" {
			return parseFloat(stream.Duration)
		}
		return parseFloat(p.Format.Duration)
	case NFrames:
		if stream.NBFrames != "" {
			return parseFloat(stream.NBFrames)
		}
		// Some containers omit nb_frames; estimate from rate and duration.
		dur := parseFloat(stream.Duration)
		if dur == 0 {
			dur = parseFloat(p.Format.Duration)
		}
		return parseRate(stream.AvgFrameRate) * dur
	}
	return 0
}
