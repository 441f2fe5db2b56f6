/*
Package modkit is an in-process extensibility runtime: it loads declared
units into modules, wires their instances to a typed event registry and
drives their lifecycle through loading, initialization and sessions.

# Overview

A host describes its extensions as unit declarations grouped by plugin.
The loader turns them into module managers in phases:

	IDLE -> LOADING (per group) -> INITIALIZING -> IDLE

PreInit1 callables run while a unit is loaded, PreInit2 callables and
factory products at the end of a group's LOADING phase, Init callables
at the start of INITIALIZING. Managers are committed to the live registry
in the order they were staged.

# Basic Usage

	rt, err := modkit.New()
	if err != nil {
	    log.Fatal(err)
	}
	defer rt.Close()

	ping, _ := rt.RegisterEvent("ping")

	err = rt.LoadGroup(ctx, loader.GroupDeclaration{Name: "core", PluginID: "core"},
	    []loader.UnitDeclaration{{
	        Name: "pinger",
	        Module: &loader.ModuleDecl{
	            Scope:   module.ScopeSingleton,
	            Factory: newPinger,
	            Events:  []string{"ping"},
	        },
	    }},
	)

	_ = ping.Post(Ping{})

# Sessions

Session-scoped modules and listeners get a fresh instance on every join
and world switch, and lose it on leave:

	rt.Sessions().Join("overworld")
	rt.Sessions().SwitchWorld("nether")
	rt.Sessions().Leave()

# Settings

Module settings are loaded in one batch when a group finishes loading,
validated against each module's schema and persisted by a settings store
(memory, SQLite or YAML/JSON files). Changing the "enabled" setting wires
the module in or out of the event registry.

# Configuration

NewFromEnv reads MODKIT_* environment variables (see config.Runtime) to
pick the log level and format, the settings store and whether OpenTelemetry
metrics and tracing are enabled.

# Error Handling

Errors are classified by the errors subpackage:

  - ConfigurationError: malformed unit metadata, duplicate registrations
  - IllegalStateError: an operation called in the wrong loader phase
  - InvocationError: a callable, factory or handler failed or panicked

Per-unit failures are joined; use errors.Is or the IsX helpers.
*/
package modkit
