package modkit

import (
	"log/slog"

	"github.com/randalmurphal/modkit/pkg/modkit/config"
	"github.com/randalmurphal/modkit/pkg/modkit/observability"
	"github.com/randalmurphal/modkit/pkg/modkit/settings"
)

// runtimeConfig holds the collaborators a Runtime is built from.
type runtimeConfig struct {
	env     config.Runtime
	logger  *slog.Logger
	store   settings.Store
	metrics observability.MetricsRecorder
	spans   observability.SpanManager
	newID   func() string
}

func defaultRuntimeConfig() runtimeConfig {
	return runtimeConfig{
		env: config.Runtime{
			LogLevel:       "info",
			LogFormat:      "text",
			SettingsDriver: config.DriverMemory,
		},
	}
}

// Option configures a Runtime.
type Option func(*runtimeConfig)

// WithConfig sets the runtime configuration. Fields it leaves to the
// environment (store, metrics, tracing, logging) apply unless another
// option overrides them.
func WithConfig(env config.Runtime) Option {
	return func(c *runtimeConfig) {
		c.env = env
	}
}

// WithLogger sets the logger shared by every component.
// Default: a logger built from the configuration, writing to stderr.
func WithLogger(logger *slog.Logger) Option {
	return func(c *runtimeConfig) {
		c.logger = logger
	}
}

// WithStore sets the settings store. The runtime takes ownership and
// closes it on Close.
//
// Example:
//
//	store, _ := settings.NewSQLiteStore("./settings.db")
//	rt, err := modkit.New(modkit.WithStore(store))
func WithStore(store settings.Store) Option {
	return func(c *runtimeConfig) {
		c.store = store
	}
}

// WithMetrics sets the metrics recorder used by the loader and event registry.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *runtimeConfig) {
		c.metrics = m
	}
}

// WithSpanManager sets the span manager for loader phase tracing.
func WithSpanManager(s observability.SpanManager) Option {
	return func(c *runtimeConfig) {
		c.spans = s
	}
}

// WithSessionIDs replaces the session id generator.
func WithSessionIDs(fn func() string) Option {
	return func(c *runtimeConfig) {
		c.newID = fn
	}
}
