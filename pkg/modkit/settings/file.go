package settings

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/randalmurphal/modkit/pkg/modkit/config"
	"github.com/randalmurphal/modkit/pkg/modkit/module"
)

// FileStore keeps one settings file per module under a directory:
// <dir>/<plugin id>/<module name><ext>, encoded as YAML or JSON.
type FileStore struct {
	dir    string
	ext    string
	mu     sync.Mutex
	closed bool
}

// NewFileStore creates a store rooted at dir writing files with ext
// (".yaml" when empty).
func NewFileStore(dir, ext string) (*FileStore, error) {
	if ext == "" {
		ext = ".yaml"
	}
	switch ext {
	case ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("unsupported settings file extension: %s", ext)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create settings dir: %w", err)
	}
	return &FileStore{dir: dir, ext: ext}, nil
}

func (f *FileStore) path(id module.ID) string {
	return filepath.Join(f.dir, id.PluginID, id.Name+f.ext)
}

// Load implements Store.
func (f *FileStore) Load(_ context.Context, id module.ID) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil, ErrStoreClosed
	}
	return f.read(id)
}

func (f *FileStore) read(id module.ID) (map[string]any, error) {
	cfg, err := config.FromFile(f.path(id))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return make(map[string]any), nil
		}
		return nil, fmt.Errorf("load settings %s: %w", id, err)
	}
	return module.DeepCopy(cfg.Raw()), nil
}

// Save implements Store.
func (f *FileStore) Save(_ context.Context, id module.ID, path string, value any) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrStoreClosed
	}
	data, err := f.read(id)
	if err != nil {
		return err
	}
	data[path] = value
	return f.write(id, data)
}

// Delete implements Store.
func (f *FileStore) Delete(_ context.Context, id module.ID, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return ErrStoreClosed
	}
	data, err := f.read(id)
	if err != nil {
		return err
	}
	if _, ok := data[path]; !ok {
		return nil
	}
	delete(data, path)
	return f.write(id, data)
}

func (f *FileStore) write(id module.ID, data map[string]any) error {
	p := f.path(id)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	return config.WriteFile(p, data)
}

// Close implements Store.
func (f *FileStore) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}
