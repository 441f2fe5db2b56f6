// Package loader runs the multi-phase discovery, construction, settings
// loading and initialization of modules.
//
// # Phases
//
// A Loader moves through IDLE → LOADING(group) → INITIALIZING → IDLE:
//
//	l, err := loader.New(events, lifecycle, settingsSvc)
//	if err != nil {
//	    return err
//	}
//	if err := l.StartLoading(ctx, loader.GroupDeclaration{Name: "core", PluginID: "core"}); err != nil {
//	    return err
//	}
//	if err := l.Load(ctx, units); err != nil {
//	    // per-unit configuration errors; other units are loaded
//	}
//	if err := l.InitializeAndFinishLoading(ctx); err != nil {
//	    return err
//	}
//
// Operations called in the wrong phase return *errors.IllegalStateError.
//
// # Units
//
// Each UnitDeclaration may declare a module, a standalone listener,
// lifecycle callables and factories. Per unit the loader resolves the plugin
// id (unit, then namespace, then group), stages module managers, defers
// listeners and runs PreInit1 callables immediately. When the group's
// LOADING phase ends (SwitchGroup or InitializeAndFinishLoading) it loads
// settings for all newly staged modules in one batch, runs PreInit2
// callables and registers factory products. Initialization runs Init
// callables, commits pending managers in FIFO order and registers deferred
// listeners.
//
// # Failures
//
// A malformed unit is rejected with a *errors.ConfigurationError naming it
// and the rest of the scan continues. Per-module failures at commit
// (duplicates, failing constructors) skip that module. A failing lifecycle
// callable aborts the remaining steps of the current phase; managers still
// pending are committed on the next successful initialization.
//
// # Sessions
//
// Session-scoped modules and listeners get a fresh instance on every
// lifecycle join, are removed on leave and are recycled on world switch.
package loader
