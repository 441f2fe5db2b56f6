// Package module holds the identity and runtime state of a single module.
//
// A Descriptor is immutable and created once at load time. A Manager carries
// the mutable state around it: settings, the enabled flag, the live instance
// and event subscriptions. Identity, equality and hashing of both are defined
// by (name, plugin id) alone.
//
// Managers have no internal synchronization; they are mutated by the host's
// controlling goroutine only.
package module

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// ID is the identity of a module: its name within its owning plugin.
type ID struct {
	Name     string
	PluginID string
}

// String returns "plugin:name".
func (id ID) String() string {
	return id.PluginID + ":" + id.Name
}

// Hash returns a stable 64-bit hash of the identity.
func (id ID) Hash() uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(id.PluginID)
	_, _ = d.Write([]byte{0})
	_, _ = d.WriteString(id.Name)
	return d.Sum64()
}

// Descriptor is the immutable description of a module.
type Descriptor struct {
	id          ID
	capability  string
	category    string
	description string
}

// NewDescriptor creates a descriptor. Name and plugin id are required.
func NewDescriptor(id ID, capability, category, description string) (Descriptor, error) {
	if id.Name == "" {
		return Descriptor{}, fmt.Errorf("module name is required")
	}
	if id.PluginID == "" {
		return Descriptor{}, fmt.Errorf("module %s has no plugin id", id.Name)
	}
	return Descriptor{
		id:          id,
		capability:  capability,
		category:    category,
		description: description,
	}, nil
}

// ID returns the identity.
func (d Descriptor) ID() ID { return d.id }

// Name returns the module name.
func (d Descriptor) Name() string { return d.id.Name }

// PluginID returns the owning plugin id.
func (d Descriptor) PluginID() string { return d.id.PluginID }

// Capability returns the declared capability type.
func (d Descriptor) Capability() string { return d.capability }

// Category returns the category.
func (d Descriptor) Category() string { return d.category }

// Description returns the description.
func (d Descriptor) Description() string { return d.description }

// Equal compares identity only.
func (d Descriptor) Equal(other Descriptor) bool {
	return d.id == other.id
}

// Hash hashes identity only.
func (d Descriptor) Hash() uint64 {
	return d.id.Hash()
}

// String returns the identity string.
func (d Descriptor) String() string {
	return d.id.String()
}
