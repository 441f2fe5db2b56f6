package modkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/randalmurphal/modkit/pkg/modkit/config"
	"github.com/randalmurphal/modkit/pkg/modkit/event"
	"github.com/randalmurphal/modkit/pkg/modkit/loader"
	"github.com/randalmurphal/modkit/pkg/modkit/observability"
	"github.com/randalmurphal/modkit/pkg/modkit/session"
	"github.com/randalmurphal/modkit/pkg/modkit/settings"
)

// Runtime wires the event registry, settings, loader and session tracker
// of one host. Every collaborator is owned by the Runtime; there is no
// process-wide state. A Runtime is not safe for concurrent use.
type Runtime struct {
	env       config.Runtime
	logger    *slog.Logger
	events    *event.Registry
	lifecycle *event.Lifecycle
	settings  *settings.Service
	loader    *loader.Loader
	sessions  *session.Tracker
}

// New builds a Runtime. Without options it uses an in-memory settings
// store, text logging at info level and no metrics or tracing.
func New(opts ...Option) (*Runtime, error) {
	cfg := defaultRuntimeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.env.Validate(); err != nil {
		return nil, fmt.Errorf("invalid runtime config: %w", err)
	}

	logger := cfg.logger
	if logger == nil {
		logger = cfg.env.Logger(os.Stderr)
	}
	metrics := cfg.metrics
	if metrics == nil {
		metrics = observability.NoopMetrics{}
		if cfg.env.Metrics {
			metrics = observability.NewMetricsRecorder()
		}
	}
	spans := cfg.spans
	if spans == nil {
		spans = observability.NoopSpanManager{}
		if cfg.env.Tracing {
			spans = observability.NewSpanManager()
		}
	}
	store := cfg.store
	if store == nil {
		var err error
		if store, err = OpenStore(cfg.env); err != nil {
			return nil, err
		}
	}

	events := event.NewRegistry(event.WithLogger(logger), event.WithMetrics(metrics))
	lifecycle, err := event.RegisterLifecycle(events)
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("register lifecycle events: %w", err)
	}

	svc := settings.NewService(store, settings.WithLogger(logger))
	ld, err := loader.New(events, lifecycle, svc,
		loader.WithLogger(logger),
		loader.WithMetrics(metrics),
		loader.WithSpanManager(spans),
	)
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	trackerOpts := []session.Option{session.WithLogger(logger)}
	if cfg.newID != nil {
		trackerOpts = append(trackerOpts, session.WithIDGenerator(cfg.newID))
	}

	return &Runtime{
		env:       cfg.env,
		logger:    logger,
		events:    events,
		lifecycle: lifecycle,
		settings:  svc,
		loader:    ld,
		sessions:  session.NewTracker(lifecycle, trackerOpts...),
	}, nil
}

// NewFromEnv builds a Runtime from MODKIT_* environment variables.
// Options apply after the environment.
func NewFromEnv(opts ...Option) (*Runtime, error) {
	env, err := config.LoadRuntime()
	if err != nil {
		return nil, err
	}
	return New(append([]Option{WithConfig(env)}, opts...)...)
}

// OpenStore opens the settings store selected by env.
func OpenStore(env config.Runtime) (settings.Store, error) {
	switch env.SettingsDriver {
	case config.DriverMemory, "":
		return settings.NewMemoryStore(), nil
	case config.DriverSQLite:
		return settings.NewSQLiteStore(env.SettingsPath)
	case config.DriverFile:
		ext := ""
		if env.SettingsFormat != "" {
			ext = "." + env.SettingsFormat
		}
		return settings.NewFileStore(env.SettingsPath, ext)
	default:
		return nil, fmt.Errorf("unknown settings driver %q", env.SettingsDriver)
	}
}

// Config returns the runtime configuration.
func (r *Runtime) Config() config.Runtime {
	return r.env
}

// Logger returns the shared logger.
func (r *Runtime) Logger() *slog.Logger {
	return r.logger
}

// Events returns the event registry.
func (r *Runtime) Events() *event.Registry {
	return r.events
}

// Lifecycle returns the session lifecycle posters.
func (r *Runtime) Lifecycle() *event.Lifecycle {
	return r.lifecycle
}

// Settings returns the settings service.
func (r *Runtime) Settings() *settings.Service {
	return r.settings
}

// Loader returns the module loader.
func (r *Runtime) Loader() *loader.Loader {
	return r.loader
}

// Sessions returns the session tracker.
func (r *Runtime) Sessions() *session.Tracker {
	return r.sessions
}

// RegisterEvent registers an event type and returns its poster.
func (r *Runtime) RegisterEvent(name string, opts ...event.TypeOption) (*event.Poster, error) {
	return r.events.RegisterType(name, opts...)
}

// LoadGroup runs one complete loading cycle for a single group: it starts
// loading, loads units, then initializes and commits. Failures of
// individual units do not stop the cycle and are joined in the result.
func (r *Runtime) LoadGroup(ctx context.Context, group loader.GroupDeclaration, units []loader.UnitDeclaration) error {
	if err := r.loader.StartLoading(ctx, group); err != nil {
		return err
	}
	loadErr := r.loader.Load(ctx, units)
	return errors.Join(loadErr, r.loader.InitializeAndFinishLoading(ctx))
}

// Close leaves an active session and closes the settings store.
func (r *Runtime) Close() error {
	var errs []error
	if _, ok := r.sessions.Current(); ok {
		errs = append(errs, r.sessions.Leave())
	}
	errs = append(errs, r.settings.Close())
	return errors.Join(errs...)
}
