package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Settings store drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
	DriverFile   = "file"
)

// Runtime is the process-level configuration read from the environment.
type Runtime struct {
	LogLevel  string `env:"MODKIT_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"MODKIT_LOG_FORMAT" envDefault:"text"`

	SettingsDriver string `env:"MODKIT_SETTINGS_DRIVER" envDefault:"memory"`
	SettingsPath   string `env:"MODKIT_SETTINGS_PATH"`

	// SettingsFormat is the file encoding of the file driver: yaml or json.
	SettingsFormat string `env:"MODKIT_SETTINGS_FORMAT" envDefault:"yaml"`

	Metrics bool `env:"MODKIT_METRICS" envDefault:"false"`
	Tracing bool `env:"MODKIT_TRACING" envDefault:"false"`
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// LoadRuntime reads and validates Runtime from the environment.
func LoadRuntime() (Runtime, error) {
	var rt Runtime
	if err := ParseEnv(&rt); err != nil {
		return Runtime{}, err
	}
	if err := rt.Validate(); err != nil {
		return Runtime{}, err
	}
	return rt, nil
}

// Validate checks driver and path combinations.
func (r Runtime) Validate() error {
	switch r.SettingsDriver {
	case DriverMemory:
	case DriverSQLite, DriverFile:
		if r.SettingsPath == "" {
			return fmt.Errorf("settings driver %s requires MODKIT_SETTINGS_PATH", r.SettingsDriver)
		}
	default:
		return fmt.Errorf("unknown settings driver %q", r.SettingsDriver)
	}
	switch r.SettingsFormat {
	case "", "yaml", "yml", "json":
	default:
		return fmt.Errorf("unknown settings format %q", r.SettingsFormat)
	}
	if _, err := parseLevel(r.LogLevel); err != nil {
		return err
	}
	return nil
}

// Level returns the slog level, defaulting to info.
func (r Runtime) Level() slog.Level {
	lvl, err := parseLevel(r.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Logger builds a logger writing to w in the configured format.
func (r Runtime) Logger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: r.Level()}
	if strings.EqualFold(r.LogFormat, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return lvl, nil
}
