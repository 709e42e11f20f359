package logging

import (
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RunLogger collects the resolved configuration of a command run (the
// directory layout, the selected study, feature toggles) and emits it as a
// single structured event. Every run then records exactly which volumes and
// settings it operated on, which matters when data files live on removable
// drives that get swapped between machines.
type RunLogger struct {
	command  string
	dirs     map[string]string
	config   map[string]string
	features map[string]bool
}

// NewRunLogger creates a RunLogger for the given command name.
func NewRunLogger(command string) *RunLogger {
	return &RunLogger{
		command:  command,
		dirs:     make(map[string]string),
		config:   make(map[string]string),
		features: make(map[string]bool),
	}
}

// Dir registers a resolved directory.
func (r *RunLogger) Dir(label, path string) *RunLogger {
	r.dirs[label] = path
	return r
}

// Config registers an arbitrary configuration value.
func (r *RunLogger) Config(key, value string) *RunLogger {
	r.config[key] = value
	return r
}

// Feature registers a toggle and its state.
func (r *RunLogger) Feature(name string, enabled bool) *RunLogger {
	r.features[name] = enabled
	return r
}

// EnvOrDefault returns the environment variable's value, or the default when
// it is unset or empty.
func EnvOrDefault(envVar, defaultVal string) string {
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	return defaultVal
}

// Log emits the collected state as one structured event.
func (r *RunLogger) Log() {
	evt := log.Info().
		Str("command", r.command).
		Str("goVersion", runtime.Version()).
		Time("startedAt", time.Now())

	if len(r.dirs) > 0 {
		evt = evt.Dict("dirs", dictFromMap(r.dirs))
	}
	if len(r.config) > 0 {
		evt = evt.Dict("config", dictFromMap(r.config))
	}
	if len(r.features) > 0 {
		features := zerolog.Dict()
		for name, enabled := range r.features {
			features = features.Bool(name, enabled)
		}
		evt = evt.Dict("features", features)
	}

	evt.Msg("Run configuration")
}

func dictFromMap(m map[string]string) *zerolog.Event {
	d := zerolog.Dict()
	for k, v := range m {
		d = d.Str(k, v)
	}
	return d
}
