// Package registry provides insertion-ordered generic registries.
//
// Registry is a single-key registry that rejects duplicate keys. DualKey
// indexes every value under a primary key and a secondary key derived from
// the value itself, and rejects a value if either key is already taken.
//
// # Basic Usage
//
//	r := registry.New[string, Factory]()
//	if err := r.Register("teleport", f); err != nil {
//	    // duplicate name
//	}
//
// # Dual keys
//
// The module runtime keys live modules by (name, plugin id) and derives a
// secondary key from the module's declared capability, so a second module
// claiming the same capability is rejected even under a different name:
//
//	live := registry.NewDualKey[module.ID, string, *module.Manager](
//	    func(m *module.Manager) string { return m.Descriptor().Capability() },
//	)
//	if !live.Put(m.ID(), m) {
//	    // duplicate
//	}
//
// # Thread Safety
//
// Registries are NOT safe for concurrent use. They belong to the goroutine
// that drives the module runtime. Range iterates over a snapshot, so it is
// safe to Register or Delete from within the callback.
package registry
