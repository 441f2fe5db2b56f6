package registry

import (
	"errors"
	"fmt"
)

// ErrDuplicate indicates a key is already registered.
var ErrDuplicate = errors.New("registry: duplicate key")

// Registry holds values indexed by key, remembering insertion order.
type Registry[K comparable, V any] struct {
	entries map[K]V
	order   []K
}

// New creates a new empty registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		entries: make(map[K]V),
	}
}

// Register adds a value. Returns an error wrapping ErrDuplicate if the key exists.
func (r *Registry[K, V]) Register(key K, value V) error {
	if _, exists := r.entries[key]; exists {
		return fmt.Errorf("%w: %v", ErrDuplicate, key)
	}
	r.entries[key] = value
	r.order = append(r.order, key)
	return nil
}

// Get returns the value for a key and whether it exists.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	v, ok := r.entries[key]
	return v, ok
}

// MustGet returns the value for a key, panicking if not found.
func (r *Registry[K, V]) MustGet(key K) V {
	v, ok := r.entries[key]
	if !ok {
		panic("registry: key not found")
	}
	return v
}

// Has returns true if the key exists in the registry.
func (r *Registry[K, V]) Has(key K) bool {
	_, ok := r.entries[key]
	return ok
}

// Delete removes a key from the registry.
// Returns true if the key was present.
func (r *Registry[K, V]) Delete(key K) bool {
	if _, ok := r.entries[key]; !ok {
		return false
	}
	delete(r.entries, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns all keys in insertion order.
func (r *Registry[K, V]) Keys() []K {
	keys := make([]K, len(r.order))
	copy(keys, r.order)
	return keys
}

// Len returns the number of entries in the registry.
func (r *Registry[K, V]) Len() int {
	return len(r.entries)
}

// Range iterates over a snapshot of the entries in insertion order.
// If fn returns false, iteration stops.
func (r *Registry[K, V]) Range(fn func(K, V) bool) {
	for _, k := range r.Keys() {
		v, ok := r.entries[k]
		if !ok {
			continue
		}
		if !fn(k, v) {
			return
		}
	}
}

// GetOrCreate returns the value for a key, creating it with the factory
// function if it doesn't exist.
func (r *Registry[K, V]) GetOrCreate(key K, factory func() V) V {
	if v, ok := r.entries[key]; ok {
		return v
	}
	v := factory()
	r.entries[key] = v
	r.order = append(r.order, key)
	return v
}
