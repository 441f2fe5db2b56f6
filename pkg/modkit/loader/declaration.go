package loader

import (
	"context"

	"github.com/randalmurphal/modkit/pkg/modkit/event"
	"github.com/randalmurphal/modkit/pkg/modkit/module"
	"github.com/randalmurphal/modkit/pkg/modkit/settings"
)

// Tag selects when a lifecycle callable runs.
type Tag int

const (
	// PreInit1 callables run as soon as their unit is loaded.
	PreInit1 Tag = iota

	// PreInit2 callables run at the end of the current LOADING phase.
	PreInit2

	// Init callables run at the start of the next INITIALIZING phase.
	Init
)

// String returns the tag name.
func (t Tag) String() string {
	switch t {
	case PreInit1:
		return "pre-init 1"
	case PreInit2:
		return "pre-init 2"
	case Init:
		return "init"
	default:
		return "unknown"
	}
}

// Callable is a tagged lifecycle callable.
type Callable struct {
	Tag  Tag
	Name string
	Fn   func(ctx context.Context) error
}

// FactoryDecl produces a named value registered after LOADING ends.
type FactoryDecl struct {
	Name    string
	Produce func() (any, error)
}

// ModuleDecl is the module capability of a unit.
type ModuleDecl struct {
	Name string

	// Capability is the declared capability type. Defaults to the module id.
	Capability  string
	Category    string
	Description string

	Scope             module.Scope
	AlwaysInstantiate bool
	StartDisabled     bool

	Factory module.Factory

	Schema   settings.Schema
	Defaults map[string]any

	// Events names the event types the instance listens to.
	Events []string
}

// ListenerDecl is a standalone listener capability of a unit.
type ListenerDecl struct {
	Scope   module.Scope
	Accepts []string
	New     func() event.Listener
}

// Namespace groups units sharing a plugin id.
type Namespace struct {
	Name     string
	PluginID string
}

// UnitDeclaration is one unit as produced by a host's metadata scanner.
type UnitDeclaration struct {
	Name string

	// PluginID overrides the namespace and group plugin ids.
	PluginID  string
	Namespace Namespace

	Module    *ModuleDecl
	Listener  *ListenerDecl
	Callables []Callable
	Factories []FactoryDecl
}

// GroupDeclaration names a loading group and its default plugin id.
type GroupDeclaration struct {
	Name     string
	PluginID string
}
