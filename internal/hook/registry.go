package hook

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
)

// ErrHookNotFound is returned when a requested hook does not exist.
var ErrHookNotFound = errors.New("hook not found")

// Registry holds the hooks found in a directory.
type Registry struct {
	dir   string
	log   *zap.Logger
	hooks map[string]*Hook
	mu    sync.RWMutex
}

// NewRegistry returns an empty registry for dir.
func NewRegistry(dir string, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		dir:   dir,
		log:   log,
		hooks: make(map[string]*Hook),
	}
}

// Discover rescans the directory. A missing directory yields no hooks;
// unreadable or invalid manifests are skipped with a warning.
func (r *Registry) Discover() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.hooks = make(map[string]*Hook)

	entries, err := os.ReadDir(r.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read hooks dir: %w", err)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(r.dir, entry.Name())
		h, err := load(dir)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			r.log.Warn("skipping hook", zap.String("dir", dir), zap.Error(err))
			continue
		}
		r.hooks[h.Manifest.Name] = h
	}
	return nil
}

func load(dir string) (*Hook, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return nil, err
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if m.Name == "" || m.Executable == "" {
		return nil, errors.New("manifest needs a name and an executable")
	}

	return &Hook{
		Manifest:   m,
		Dir:        dir,
		Executable: filepath.Join(dir, m.Executable),
	}, nil
}

// Get returns a hook by name.
func (r *Registry) Get(name string) (*Hook, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.hooks[name]
	if !ok {
		return nil, ErrHookNotFound
	}
	return h, nil
}

// List returns every hook, sorted by name.
func (r *Registry) List() []*Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	hooks := make([]*Hook, 0, len(r.hooks))
	for _, h := range r.hooks {
		hooks = append(hooks, h)
	}
	sort.Slice(hooks, func(i, j int) bool { return hooks[i].Manifest.Name < hooks[j].Manifest.Name })
	return hooks
}

// Dir returns the directory the registry scans.
func (r *Registry) Dir() string {
	return r.dir
}
