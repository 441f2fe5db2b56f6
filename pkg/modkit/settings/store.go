package settings

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/randalmurphal/modkit/pkg/modkit/module"
)

// Store persists settings values per module.
// Implementations must be safe for concurrent use.
type Store interface {
	// Load returns the persisted values of a module.
	// Returns an empty map (not an error) if nothing is stored.
	Load(ctx context.Context, id module.ID) (map[string]any, error)

	// Save stores one value, overwriting any previous value at path.
	Save(ctx context.Context, id module.ID, path string, value any) error

	// Delete removes one value. Returns nil if it does not exist.
	Delete(ctx context.Context, id module.ID, path string) error

	// Close releases any resources.
	Close() error
}

// ErrStoreClosed indicates the store has been closed.
var ErrStoreClosed = errors.New("settings store closed")

// MemoryStore keeps settings in memory. Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[module.ID]map[string]any
	closed bool
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[module.ID]map[string]any)}
}

// Load implements Store.
func (m *MemoryStore) Load(_ context.Context, id module.ID) (map[string]any, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	out := maps.Clone(m.data[id])
	if out == nil {
		out = make(map[string]any)
	}
	return out, nil
}

// Save implements Store.
func (m *MemoryStore) Save(_ context.Context, id module.ID, path string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	if m.data[id] == nil {
		m.data[id] = make(map[string]any)
	}
	m.data[id][path] = value
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id module.ID, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.data[id], path)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
