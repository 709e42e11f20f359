package ffmpegcmd

import (
	"bytes"
	"fmt"
	"os/exec"
)

// Runner executes an external command and returns its stdout. It exists so
// the transform, concatenation, and probe layers can be exercised in tests
// with a recording fake instead of a real ffmpeg install.
type Runner interface {
	Run(name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec, blocking until they exit.
type ExecRunner struct{}

// Run executes name with args and returns stdout. Stderr is folded into the
// returned error so probe/transcode failures carry the tool's diagnostics.
func (ExecRunner) Run(name string, args ...string) ([]byte, error) {
	cmd := exec.Command(name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		return out, fmt.Errorf("%s failed: %w (stderr: %s)", name, err, stderr.String())
	}
	return out, nil
}

// CheckAvailable verifies ffmpeg and ffprobe are on PATH. Called once at
// startup so a missing install fails fast instead of midway through a batch.
func CheckAvailable() error {
	for _, tool := range []string{"ffmpeg", "ffprobe"} {
		if _, err := exec.LookPath(tool); err != nil {
			return fmt.Errorf("%s not found in PATH: install FFmpeg with: brew install ffmpeg (macOS) or apt install ffmpeg (Linux)", tool)
		}
	}
	return nil
}
