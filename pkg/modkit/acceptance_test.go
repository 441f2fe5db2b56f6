package modkit

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/modkit/pkg/modkit/config"
	"github.com/randalmurphal/modkit/pkg/modkit/errors"
	"github.com/randalmurphal/modkit/pkg/modkit/event"
	"github.com/randalmurphal/modkit/pkg/modkit/loader"
	"github.com/randalmurphal/modkit/pkg/modkit/module"
	"github.com/randalmurphal/modkit/pkg/modkit/settings"
)

type Ping struct {
	From string
}

type pinger struct {
	interval time.Duration
	received []Ping
	handlers []*event.Handler
}

func (p *pinger) Handlers() []*event.Handler {
	return p.handlers
}

func (p *pinger) OnNewSetting(path string, value any) error {
	if path != "interval" {
		return nil
	}
	d, err := time.ParseDuration(value.(string))
	if err != nil {
		return err
	}
	p.interval = d
	return nil
}

var pingerID = module.ID{Name: "pinger", PluginID: "core"}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// pingUnit declares the pinger module listening to ping events.
func pingUnit(ping *event.Poster, scope module.Scope) loader.UnitDeclaration {
	onPing := event.Method("onPing", ping.Type(), func(p *pinger, e Ping) error {
		p.received = append(p.received, e)
		return nil
	})
	return loader.UnitDeclaration{
		Name: "pinger",
		Module: &loader.ModuleDecl{
			Capability: "Pinger",
			Scope:      scope,
			Factory: func(m *module.Manager) (any, error) {
				return &pinger{
					interval: m.Config().Duration("interval", 0),
					handlers: []*event.Handler{onPing},
				}, nil
			},
			Schema:   settings.Schema{"interval": settings.Duration()},
			Defaults: map[string]any{"interval": "1s"},
			Events:   []string{"ping"},
		},
	}
}

var coreGroup = loader.GroupDeclaration{Name: "core", PluginID: "core"}

func TestAcceptance_PingModule(t *testing.T) {
	ctx := context.Background()
	rt, err := New(WithLogger(quietLogger()))
	require.NoError(t, err)
	defer rt.Close()

	ping, err := rt.RegisterEvent("ping")
	require.NoError(t, err)
	require.NoError(t, rt.LoadGroup(ctx, coreGroup, []loader.UnitDeclaration{pingUnit(ping, module.ScopeSingleton)}))

	m, ok := rt.Loader().ModuleByCapability("Pinger")
	require.True(t, ok)
	p := m.Instance().(*pinger)
	assert.Equal(t, time.Second, p.interval)

	require.NoError(t, ping.Post(Ping{From: "host"}))
	assert.Equal(t, []Ping{{From: "host"}}, p.received)

	require.NoError(t, rt.Settings().Set(ctx, pingerID, "interval", "250ms"))
	assert.Equal(t, 250*time.Millisecond, p.interval)

	require.NoError(t, rt.Settings().Set(ctx, pingerID, settings.EnabledPath, false))
	require.NoError(t, ping.Post(Ping{From: "ignored"}))
	assert.Len(t, p.received, 1)
}

func TestAcceptance_SessionScopedPing(t *testing.T) {
	ctx := context.Background()
	rt, err := New(WithLogger(quietLogger()), WithSessionIDs(func() string { return "fixed" }))
	require.NoError(t, err)
	defer rt.Close()

	ping, err := rt.RegisterEvent("ping")
	require.NoError(t, err)
	require.NoError(t, rt.LoadGroup(ctx, coreGroup, []loader.UnitDeclaration{pingUnit(ping, module.ScopeSession)}))
	assert.Nil(t, rt.Loader().Instance(pingerID))

	h, err := rt.Sessions().Join("overworld")
	require.NoError(t, err)
	assert.Equal(t, "fixed", h.ID)

	p, ok := rt.Loader().Instance(pingerID).(*pinger)
	require.True(t, ok)
	require.NoError(t, ping.Post(Ping{From: "a"}))
	assert.Len(t, p.received, 1)

	require.NoError(t, rt.Sessions().Leave())
	assert.Nil(t, rt.Loader().Instance(pingerID))

	err = rt.Sessions().Leave()
	assert.True(t, errors.IsIllegalState(err))
}

func TestAcceptance_SettingsPersistAcrossRuntimes(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "settings.db")

	open := func() (*Runtime, *event.Poster) {
		store, err := settings.NewSQLiteStore(path)
		require.NoError(t, err)
		rt, err := New(WithLogger(quietLogger()), WithStore(store))
		require.NoError(t, err)
		ping, err := rt.RegisterEvent("ping")
		require.NoError(t, err)
		require.NoError(t, rt.LoadGroup(ctx, coreGroup, []loader.UnitDeclaration{pingUnit(ping, module.ScopeSingleton)}))
		return rt, ping
	}

	rt, _ := open()
	require.NoError(t, rt.Settings().Set(ctx, pingerID, "interval", "3s"))
	require.NoError(t, rt.Settings().Set(ctx, pingerID, settings.EnabledPath, false))
	require.NoError(t, rt.Close())

	rt, ping := open()
	defer rt.Close()

	m, ok := rt.Loader().Module(pingerID)
	require.True(t, ok)
	assert.False(t, m.Enabled())
	assert.Nil(t, m.Instance())
	assert.Equal(t, 3*time.Second, m.Config().Duration("interval", 0))
	require.NoError(t, ping.Post(Ping{}))
}

func TestAcceptance_LoadGroupJoinsFailures(t *testing.T) {
	ctx := context.Background()
	rt, err := New(WithLogger(quietLogger()))
	require.NoError(t, err)
	defer rt.Close()

	ping, err := rt.RegisterEvent("ping")
	require.NoError(t, err)

	units := []loader.UnitDeclaration{
		{Name: "broken", Module: &loader.ModuleDecl{}},
		pingUnit(ping, module.ScopeSingleton),
	}
	err = rt.LoadGroup(ctx, coreGroup, units)
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
	assert.Equal(t, errors.KindConfiguration, errors.KindOf(err))
	assert.Len(t, rt.Loader().Modules(), 1)
	assert.Equal(t, loader.PhaseIdle, rt.Loader().Phase())
}

func TestNew_InvalidConfig(t *testing.T) {
	_, err := New(WithConfig(config.Runtime{LogLevel: "info", SettingsDriver: "sqlite"}))
	assert.ErrorContains(t, err, "MODKIT_SETTINGS_PATH")
}

func TestNewFromEnv_FileStore(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MODKIT_SETTINGS_DRIVER", "file")
	t.Setenv("MODKIT_SETTINGS_PATH", dir)
	t.Setenv("MODKIT_SETTINGS_FORMAT", "json")
	t.Setenv("MODKIT_LOG_LEVEL", "warn")

	rt, err := NewFromEnv(WithLogger(quietLogger()))
	require.NoError(t, err)
	defer rt.Close()

	_, ok := rt.Settings().Store().(*settings.FileStore)
	assert.True(t, ok)
	assert.Equal(t, "warn", rt.Config().LogLevel)

	ctx := context.Background()
	ping, err := rt.RegisterEvent("ping")
	require.NoError(t, err)
	require.NoError(t, rt.LoadGroup(ctx, coreGroup, []loader.UnitDeclaration{pingUnit(ping, module.ScopeSingleton)}))
	require.NoError(t, rt.Settings().Set(ctx, pingerID, "interval", "2s"))
	assert.FileExists(t, filepath.Join(dir, "core", "pinger.json"))
}

func TestOpenStore(t *testing.T) {
	store, err := OpenStore(config.Runtime{SettingsDriver: config.DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &settings.MemoryStore{}, store)

	store, err = OpenStore(config.Runtime{SettingsDriver: config.DriverSQLite, SettingsPath: filepath.Join(t.TempDir(), "s.db")})
	require.NoError(t, err)
	assert.IsType(t, &settings.SQLiteStore{}, store)
	require.NoError(t, store.Close())

	_, err = OpenStore(config.Runtime{SettingsDriver: "etcd"})
	assert.Error(t, err)
}
