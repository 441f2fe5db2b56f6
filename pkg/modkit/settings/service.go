package settings

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/randalmurphal/modkit/pkg/modkit/config"
	"github.com/randalmurphal/modkit/pkg/modkit/errors"
	"github.com/randalmurphal/modkit/pkg/modkit/module"
	"github.com/randalmurphal/modkit/pkg/modkit/observability"
)

// Request asks for the settings of one module.
type Request struct {
	Descriptor module.Descriptor
	Schema     Schema
	Defaults   map[string]any
}

// Host is the runtime side the service calls back into on changes.
type Host interface {
	// Module returns the live manager for id.
	Module(id module.ID) (*module.Manager, bool)

	// SetEnabled toggles a module, wiring its listeners in or out.
	SetEnabled(id module.ID, enabled bool) error
}

// Service owns settings persistence and validation.
type Service struct {
	store    Store
	host     Host
	schemas  map[module.ID]Schema
	defaults map[module.ID]map[string]any
	live     map[module.ID]map[string]any
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a service over store. A nil store means a MemoryStore.
func NewService(store Store, opts ...Option) *Service {
	if store == nil {
		store = NewMemoryStore()
	}
	s := &Service{
		store:    store,
		schemas:  make(map[module.ID]Schema),
		defaults: make(map[module.ID]map[string]any),
		live:     make(map[module.ID]map[string]any),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = observability.EnrichLogger(s.logger, "settings")
	return s
}

// Bind sets the host notified by Set.
func (s *Service) Bind(host Host) {
	s.host = host
}

// Store returns the backing store.
func (s *Service) Store() Store {
	return s.store
}

// LoadSettings builds the settings map of every requested module: defaults
// first, then persisted values that pass the schema. Persisted values that
// fail validation are skipped with a warning.
//
// A module whose defaults are invalid or whose store read fails is left out
// of the result and reported in the joined error; the others still load.
func (s *Service) LoadSettings(ctx context.Context, reqs []Request) (map[module.ID]map[string]any, error) {
	out := make(map[module.ID]map[string]any, len(reqs))
	var errs []error

	for _, req := range reqs {
		id := req.Descriptor.ID()
		m, err := s.load(ctx, req)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		s.schemas[id] = req.Schema
		s.defaults[id] = maps.Clone(req.Defaults)
		s.live[id] = m
		out[id] = m
	}
	return out, stderrors.Join(errs...)
}

func (s *Service) load(ctx context.Context, req Request) (map[string]any, error) {
	id := req.Descriptor.ID()
	m := make(map[string]any, len(req.Defaults))

	for _, path := range slices.Sorted(maps.Keys(req.Defaults)) {
		v, err := req.Schema.Validate(path, req.Defaults[path])
		if err != nil {
			return nil, &errors.ConfigurationError{Unit: id.String(), Reason: "invalid default", Err: err}
		}
		m[path] = v
	}

	persisted, err := s.store.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("settings for %s: %w", id, err)
	}
	for _, path := range slices.Sorted(maps.Keys(persisted)) {
		v, err := req.Schema.Validate(path, persisted[path])
		if err != nil {
			s.logger.Warn("ignoring persisted setting",
				slog.String("module", id.String()),
				slog.String("path", path),
				slog.String("error", err.Error()),
			)
			continue
		}
		m[path] = v
	}
	return m, nil
}

// Get returns the live settings of a loaded module.
func (s *Service) Get(id module.ID) (config.Config, bool) {
	m, ok := s.live[id]
	if !ok {
		return config.Config{}, false
	}
	return config.New(m), true
}

// Set validates and persists value, updates the live map and notifies the
// module. Changing EnabledPath toggles the module through the host.
func (s *Service) Set(ctx context.Context, id module.ID, path string, value any) error {
	schema, ok := s.schemas[id]
	if !ok {
		return errors.Configuration(id.String(), "settings were never loaded")
	}
	v, err := schema.Validate(path, value)
	if err != nil {
		return &errors.ConfigurationError{Unit: id.String(), Reason: "invalid setting", Err: err}
	}
	enabled, isBool := v.(bool)
	if path == EnabledPath && !isBool {
		return errors.Configuration(id.String(), "%s must be a bool, got %T", EnabledPath, v)
	}
	if err := s.store.Save(ctx, id, path, v); err != nil {
		return fmt.Errorf("persist %s.%s: %w", id, path, err)
	}
	observability.LogSettingChanged(s.logger, id.String(), path)

	s.live[id][path] = v
	if s.host == nil {
		return nil
	}
	mgr, ok := s.host.Module(id)
	if !ok {
		return nil
	}
	if err := mgr.NotifySetting(path, v); err != nil {
		return err
	}
	if path == EnabledPath {
		return s.host.SetEnabled(id, enabled)
	}
	return nil
}

// Reset removes a persisted value and restores its default in the live map.
func (s *Service) Reset(ctx context.Context, id module.ID, path string) error {
	if err := s.store.Delete(ctx, id, path); err != nil {
		return fmt.Errorf("reset %s.%s: %w", id, path, err)
	}
	m, ok := s.live[id]
	if !ok {
		return nil
	}
	if d, ok := s.defaults[id][path]; ok {
		// Defaults passed validation when the module loaded.
		m[path], _ = s.schemas[id].Validate(path, d)
	} else {
		delete(m, path)
	}
	return nil
}

// Close closes the store.
func (s *Service) Close() error {
	return s.store.Close()
}
