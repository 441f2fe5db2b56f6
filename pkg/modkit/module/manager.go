package module

import (
	"slices"

	"github.com/randalmurphal/modkit/pkg/modkit/config"
	"github.com/randalmurphal/modkit/pkg/modkit/errors"
	"github.com/randalmurphal/modkit/pkg/modkit/event"
)

// Flag is a scope flag of a module.
type Flag uint8

const (
	// Singleton modules persist across sessions. Without it a module is
	// session scoped and gets a fresh instance per session.
	Singleton Flag = 1 << iota

	// AlwaysInstantiate modules are constructed at commit even when disabled.
	AlwaysInstantiate
)

// Scope is the declared lifetime of a module or listener.
type Scope int

const (
	// ScopeSession creates a fresh instance for every session.
	ScopeSession Scope = iota

	// ScopeSingleton creates one instance that persists across sessions.
	ScopeSingleton
)

// String returns the scope name.
func (s Scope) String() string {
	if s == ScopeSingleton {
		return "singleton"
	}
	return "session"
}

// Flags derives scope flags from a declared scope.
func Flags(scope Scope, alwaysInstantiate bool) Flag {
	var f Flag
	if scope == ScopeSingleton {
		f |= Singleton
	}
	if alwaysInstantiate {
		f |= AlwaysInstantiate
	}
	return f
}

// Factory constructs a module instance.
type Factory func(m *Manager) (any, error)

// SettingsListener is implemented by instances that react to settings
// changed from outside the module.
type SettingsListener interface {
	OnNewSetting(path string, value any) error
}

// MapFactory produces the settings map for a clone from the original.
type MapFactory func(src map[string]any) map[string]any

// Manager is the mutable runtime state of one module.
type Manager struct {
	desc    Descriptor
	flags   Flag
	factory Factory

	settings map[string]any
	enabled  bool
	instance any
	events   []*event.Type
}

// NewManager creates an enabled manager with empty settings.
func NewManager(desc Descriptor, flags Flag, factory Factory) *Manager {
	return &Manager{
		desc:     desc,
		flags:    flags,
		factory:  factory,
		settings: make(map[string]any),
		enabled:  true,
	}
}

// Descriptor returns the immutable descriptor.
func (m *Manager) Descriptor() Descriptor { return m.desc }

// ID returns the module identity.
func (m *Manager) ID() ID { return m.desc.ID() }

// Equal compares descriptors. Runtime state never affects identity.
func (m *Manager) Equal(other *Manager) bool {
	if m == nil || other == nil {
		return m == other
	}
	return m.desc.Equal(other.desc)
}

// Hash returns the descriptor hash.
func (m *Manager) Hash() uint64 { return m.desc.Hash() }

// String returns the identity string.
func (m *Manager) String() string { return m.desc.String() }

// Enabled reports whether the module is enabled.
func (m *Manager) Enabled() bool { return m.enabled }

// SetEnabled sets the enabled flag.
func (m *Manager) SetEnabled(enabled bool) { m.enabled = enabled }

// Instance returns the live instance or nil.
func (m *Manager) Instance() any { return m.instance }

// SetInstance replaces the live instance.
func (m *Manager) SetInstance(instance any) { m.instance = instance }

// Settings returns the settings map. The map is shared, not copied.
func (m *Manager) Settings() map[string]any { return m.settings }

// SetSettings replaces the settings map.
func (m *Manager) SetSettings(settings map[string]any) {
	if settings == nil {
		settings = make(map[string]any)
	}
	m.settings = settings
}

// Config returns typed access to the settings.
func (m *Manager) Config() config.Config { return config.New(m.settings) }

// Flags returns the scope flags.
func (m *Manager) Flags() Flag { return m.flags }

// IsSingleton reports whether the Singleton flag is set.
func (m *Manager) IsSingleton() bool { return m.flags&Singleton != 0 }

// AlwaysInstantiate reports whether the AlwaysInstantiate flag is set.
func (m *Manager) AlwaysInstantiate() bool { return m.flags&AlwaysInstantiate != 0 }

// Factory returns the construction factory.
func (m *Manager) Factory() Factory { return m.factory }

// SubscribedEvents returns the subscribed event types in subscription order.
func (m *Manager) SubscribedEvents() []*event.Type {
	return slices.Clone(m.events)
}

// Subscribe adds event types to the subscription set.
func (m *Manager) Subscribe(types ...*event.Type) {
	for _, t := range types {
		if t != nil && !slices.Contains(m.events, t) {
			m.events = append(m.events, t)
		}
	}
}

// Instantiate runs the factory and stores the result as the live instance.
// Factory errors and panics are returned as *errors.InvocationError.
func (m *Manager) Instantiate() (any, error) {
	if m.factory == nil {
		return nil, errors.Configuration(m.String(), "module has no factory")
	}
	var inst any
	err := errors.Invoke(m.String(), "instantiate", func() error {
		var err error
		inst, err = m.factory(m)
		return err
	})
	if err != nil {
		return nil, err
	}
	m.instance = inst
	return inst, nil
}

// NotifySetting stores value at path and forwards it to the instance when
// the instance is a SettingsListener.
func (m *Manager) NotifySetting(path string, value any) error {
	m.settings[path] = value
	l, ok := m.instance.(SettingsListener)
	if !ok {
		return nil
	}
	return errors.Invoke(m.String(), "setting "+path, func() error {
		return l.OnNewSetting(path, value)
	})
}

// Clone returns a manager sharing the descriptor and factory with a settings
// map produced by mapFactory (DeepCopy when nil). The clone keeps the
// enabled flag and subscriptions but has no instance.
func (m *Manager) Clone(mapFactory MapFactory) *Manager {
	if mapFactory == nil {
		mapFactory = DeepCopy
	}
	settings := mapFactory(m.settings)
	if settings == nil {
		settings = make(map[string]any)
	}
	return &Manager{
		desc:     m.desc,
		flags:    m.flags,
		factory:  m.factory,
		settings: settings,
		enabled:  m.enabled,
		events:   slices.Clone(m.events),
	}
}

// DeepCopy copies a settings map, recursing into nested maps and slices.
func DeepCopy(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = deepCopyValue(v)
	}
	return dst
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return DeepCopy(val)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = deepCopyValue(item)
		}
		return out
	case []string:
		return slices.Clone(val)
	default:
		return v
	}
}
