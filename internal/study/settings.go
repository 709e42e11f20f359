// Package study holds the per-study configuration and the study-specific
// coding/concatenation strategies. Everything that varies between studies
// (which frames record video, how clips are trimmed, when a trial is
// excluded) lives here; the pipeline itself is study-agnostic.
package study

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/mekline/lookit-data-processing/internal/ffmpegcmd"
)

// TrimSetting is the per-study trim rule. In the settings file it is written
// as one of three TOML shapes:
//
//	trimLength = false              # no trimming
//	trimLength = -20                # keep the last 20 seconds
//	trimLength = 10.5               # drop the first 10.5 seconds
//	trimLength = ":startCalibration" # start at the first event ending with this
type TrimSetting struct {
	spec ffmpegcmd.TrimSpec
}

// UnmarshalTOML accepts bool, number, or string forms.
func (t *TrimSetting) UnmarshalTOML(v any) error {
	switch x := v.(type) {
	case bool:
		if x {
			return fmt.Errorf("trimLength: true is not a valid setting")
		}
		t.spec = ffmpegcmd.NoTrim
	case int64:
		t.setSeconds(float64(x))
	case float64:
		t.setSeconds(x)
	case string:
		if x == "" {
			return fmt.Errorf("trimLength: empty event suffix")
		}
		t.spec = ffmpegcmd.TrimSpec{Kind: ffmpegcmd.TrimAtEvent, EventSuffix: x}
	default:
		return fmt.Errorf("trimLength: unsupported value %v", v)
	}
	return nil
}

func (t *TrimSetting) setSeconds(s float64) {
	switch {
	case s == 0:
		t.spec = ffmpegcmd.NoTrim
	case s < 0:
		t.spec = ffmpegcmd.TrimSpec{Kind: ffmpegcmd.TrimKeepTail, Seconds: -s}
	default:
		t.spec = ffmpegcmd.TrimSpec{Kind: ffmpegcmd.TrimFromStart, Seconds: s}
	}
}

// Spec returns the trim specification for the transform engine.
func (t TrimSetting) Spec() ffmpegcmd.TrimSpec {
	return t.spec
}

// Settings configures the pipeline for one study.
type Settings struct {
	// Nickname is the settings-file key ("physics"), filled in at load time.
	Nickname string `toml:"-"`
	// ID is the platform study id.
	ID string `toml:"id"`

	// VideoFrameNames lists frame-name substrings of the frames that record
	// the study's test videos (as opposed to consent/preview recordings).
	VideoFrameNames []string `toml:"videoFrameNames"`
	// NVideosExpected is the nominal trial count, used only for reporting.
	NVideosExpected int `toml:"nVideosExp"`

	Trim TrimSetting `toml:"trimLength"`

	// UseWholeVideo lists frame-name substrings whose clips always enter the
	// session concatenation untrimmed.
	UseWholeVideo []string `toml:"useWholeVideo"`
	// SkipFrames lists frame-name substrings excluded from concatenation.
	SkipFrames []string `toml:"skipFrames"`

	OnlyConcatIfConsent bool `toml:"onlyMakeConcatIfConsent"`

	// BatchLengthMinutes is the minimum running length of a coding batch.
	BatchLengthMinutes float64 `toml:"batchLengthMinutes"`
	KeepPartialBatch   bool    `toml:"keepPartialBatch"`
	// BatchCriteria maps coding fields to the value they must hold
	// (case/whitespace-insensitive) for a session's clips to be batched.
	BatchCriteria map[string]string `toml:"batchCriteria"`

	// IncludeFields/ExcludeFields shape codesheet export; include entries are
	// matched as key endings and collapsed to the ending.
	IncludeFields []string `toml:"includeFields"`
	ExcludeFields []string `toml:"excludeFields"`

	// PostProcessing selects the study strategy set ("physics", "geometry",
	// or empty for none).
	PostProcessing string `toml:"postProcessing"`
}

// Config is the top-level settings file.
type Config struct {
	Coders         []string             `toml:"coders"`
	IgnoreProfiles []string             `toml:"ignoreProfiles"`
	Studies        map[string]*Settings `toml:"studies"`
}

// LoadConfig reads and validates the TOML settings file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("reading study settings %s: %w", path, err)
	}
	for nickname, s := range cfg.Studies {
		s.Nickname = nickname
		if s.ID == "" {
			return nil, fmt.Errorf("study %q: missing id", nickname)
		}
		if s.PostProcessing != "" && s.PostProcessing != "physics" && s.PostProcessing != "geometry" {
			return nil, fmt.Errorf("study %q: unknown postProcessing %q", nickname, s.PostProcessing)
		}
	}
	return &cfg, nil
}

// Lookup resolves a study by nickname or platform id.
func (c *Config) Lookup(nameOrID string) (*Settings, error) {
	if s, ok := c.Studies[nameOrID]; ok {
		return s, nil
	}
	for _, s := range c.Studies {
		if s.ID == nameOrID {
			return s, nil
		}
	}
	return nil, fmt.Errorf("no study named %q in settings", nameOrID)
}

// Ignored reports whether a child profile id belongs to a lab test account.
func (c *Config) Ignored(profileID string) bool {
	for _, p := range c.IgnoreProfiles {
		if p == profileID {
			return true
		}
	}
	return false
}

// MatchesFrame reports whether frameID matches any of the substrings.
func MatchesFrame(frameID string, substrings []string) bool {
	for _, s := range substrings {
		if strings.Contains(frameID, s) {
			return true
		}
	}
	return false
}
