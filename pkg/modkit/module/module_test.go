package module

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/modkit/pkg/modkit/errors"
	"github.com/randalmurphal/modkit/pkg/modkit/event"
)

func mustDescriptor(t *testing.T, name, plugin string) Descriptor {
	t.Helper()
	d, err := NewDescriptor(ID{Name: name, PluginID: plugin}, "Pinger", "utility", "pings")
	require.NoError(t, err)
	return d
}

type settingsSpy struct {
	paths []string
	fail  bool
}

func (s *settingsSpy) OnNewSetting(path string, _ any) error {
	s.paths = append(s.paths, path)
	if s.fail {
		return fmt.Errorf("rejected %s", path)
	}
	return nil
}

func TestNewDescriptor_Validation(t *testing.T) {
	_, err := NewDescriptor(ID{PluginID: "p"}, "", "", "")
	assert.Error(t, err)
	_, err = NewDescriptor(ID{Name: "n"}, "", "", "")
	assert.ErrorContains(t, err, "no plugin id")

	d := mustDescriptor(t, "ping", "core")
	assert.Equal(t, "ping", d.Name())
	assert.Equal(t, "core", d.PluginID())
	assert.Equal(t, "Pinger", d.Capability())
	assert.Equal(t, "utility", d.Category())
	assert.Equal(t, "pings", d.Description())
	assert.Equal(t, "core:ping", d.String())
}

func TestDescriptor_EqualityIgnoresMetadata(t *testing.T) {
	a := mustDescriptor(t, "ping", "core")
	b, err := NewDescriptor(ID{Name: "ping", PluginID: "core"}, "Other", "misc", "different")
	require.NoError(t, err)
	c := mustDescriptor(t, "ping", "addon")

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.False(t, a.Equal(c))
	assert.NotEqual(t, a.Hash(), c.Hash())
}

func TestID_HashSeparatesFields(t *testing.T) {
	assert.NotEqual(t, ID{Name: "ab", PluginID: "c"}.Hash(), ID{Name: "b", PluginID: "ac"}.Hash())
}

func TestManager_EqualityIgnoresState(t *testing.T) {
	a := NewManager(mustDescriptor(t, "ping", "core"), Singleton, nil)
	b := NewManager(mustDescriptor(t, "ping", "core"), 0, nil)

	a.SetSettings(map[string]any{"interval": 5})
	a.SetInstance("live")
	b.SetEnabled(false)

	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Hash(), b.Hash())
	assert.Equal(t, a.ID(), b.ID())

	set := map[ID]*Manager{a.ID(): a}
	_, found := set[b.ID()]
	assert.True(t, found)

	var nilMgr *Manager
	assert.False(t, a.Equal(nilMgr))
	assert.True(t, nilMgr.Equal(nil))
}

func TestManager_Flags(t *testing.T) {
	assert.Equal(t, Singleton|AlwaysInstantiate, Flags(ScopeSingleton, true))
	assert.Equal(t, Flag(0), Flags(ScopeSession, false))
	assert.Equal(t, "singleton", ScopeSingleton.String())
	assert.Equal(t, "session", ScopeSession.String())

	m := NewManager(mustDescriptor(t, "ping", "core"), Flags(ScopeSession, true), nil)
	assert.False(t, m.IsSingleton())
	assert.True(t, m.AlwaysInstantiate())
	assert.True(t, m.Enabled())
}

func TestManager_Subscribe(t *testing.T) {
	reg := event.NewRegistry()
	a, err := reg.RegisterType("a")
	require.NoError(t, err)
	b, err := reg.RegisterType("b")
	require.NoError(t, err)

	m := NewManager(mustDescriptor(t, "ping", "core"), 0, nil)
	m.Subscribe(a.Type(), b.Type(), a.Type(), nil)
	assert.Equal(t, []*event.Type{a.Type(), b.Type()}, m.SubscribedEvents())
}

func TestManager_Instantiate(t *testing.T) {
	calls := 0
	m := NewManager(mustDescriptor(t, "ping", "core"), Singleton, func(m *Manager) (any, error) {
		calls++
		return fmt.Sprintf("instance of %s", m.ID()), nil
	})

	inst, err := m.Instantiate()
	require.NoError(t, err)
	assert.Equal(t, "instance of core:ping", inst)
	assert.Equal(t, inst, m.Instance())
	assert.Equal(t, 1, calls)
}

func TestManager_InstantiateFailures(t *testing.T) {
	noFactory := NewManager(mustDescriptor(t, "a", "core"), 0, nil)
	_, err := noFactory.Instantiate()
	assert.True(t, errors.IsConfiguration(err))

	failing := NewManager(mustDescriptor(t, "b", "core"), 0, func(*Manager) (any, error) {
		return nil, fmt.Errorf("no resources")
	})
	_, err = failing.Instantiate()
	assert.True(t, errors.IsInvocation(err))
	assert.Nil(t, failing.Instance())

	panicking := NewManager(mustDescriptor(t, "c", "core"), 0, func(*Manager) (any, error) {
		panic("bad")
	})
	_, err = panicking.Instantiate()
	var invErr *errors.InvocationError
	require.ErrorAs(t, err, &invErr)
	assert.Equal(t, "bad", invErr.Panic)
}

func TestManager_NotifySetting(t *testing.T) {
	m := NewManager(mustDescriptor(t, "ping", "core"), 0, nil)
	require.NoError(t, m.NotifySetting("interval", 3))
	assert.Equal(t, 3, m.Config().Int("interval", 0))

	spy := &settingsSpy{}
	m.SetInstance(spy)
	require.NoError(t, m.NotifySetting("interval", 4))
	assert.Equal(t, []string{"interval"}, spy.paths)

	spy.fail = true
	err := m.NotifySetting("mode", "x")
	assert.True(t, errors.IsInvocation(err))
	assert.Equal(t, "x", m.Settings()["mode"])
}

func TestManager_CloneDeepCopiesSettings(t *testing.T) {
	factory := func(*Manager) (any, error) { return 1, nil }
	m := NewManager(mustDescriptor(t, "ping", "core"), Singleton, factory)
	m.SetSettings(map[string]any{
		"nested": map[string]any{"k": "v"},
		"list":   []any{"a"},
	})
	m.SetInstance("live")
	m.SetEnabled(false)

	clone := m.Clone(nil)
	clone.Settings()["nested"].(map[string]any)["k"] = "changed"
	clone.Settings()["list"].([]any)[0] = "b"

	assert.Equal(t, "v", m.Settings()["nested"].(map[string]any)["k"])
	assert.Equal(t, "a", m.Settings()["list"].([]any)[0])
	assert.True(t, clone.Equal(m))
	assert.Equal(t, m.Descriptor(), clone.Descriptor())
	assert.Nil(t, clone.Instance())
	assert.False(t, clone.Enabled())
	assert.True(t, clone.IsSingleton())
	require.NotNil(t, clone.Factory())
}

func TestManager_CloneUsesMapFactory(t *testing.T) {
	m := NewManager(mustDescriptor(t, "ping", "core"), 0, nil)
	m.SetSettings(map[string]any{"a": 1})

	var seen map[string]any
	clone := m.Clone(func(src map[string]any) map[string]any {
		seen = src
		return map[string]any{"from": "factory"}
	})
	assert.Equal(t, map[string]any{"a": 1}, seen)
	assert.Equal(t, "factory", clone.Settings()["from"])
}
