// Package registry is the build-time plugin table of storage backends.
package registry

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"xdao.co/npk/storage"
)

// Option documents one key a backend accepts.
type Option struct {
	Key         string
	Description string
}

// Backend is a build-time plugin that can open a storage.Store.
//
// Backends typically register themselves in init():
//
//	registry.MustRegister(registry.Backend{ ... })
type Backend struct {
	Name        string
	Description string
	Usage       Usage
	Options     []Option

	// Open constructs the store. Stores holding resources implement
	// storage.Closer.
	Open func(opts Options, logger *zap.Logger) (storage.Store, error)
}

var (
	mu       sync.RWMutex
	backends = map[string]Backend{}
)

// Register registers a backend.
func Register(b Backend) error {
	if b.Name == "" {
		return fmt.Errorf("registry: backend name is required")
	}
	if b.Open == nil {
		return fmt.Errorf("registry: backend %q missing Open", b.Name)
	}
	if b.Usage == 0 {
		return fmt.Errorf("registry: backend %q missing Usage", b.Name)
	}

	mu.Lock()
	defer mu.Unlock()
	if _, exists := backends[b.Name]; exists {
		return fmt.Errorf("registry: backend %q already registered", b.Name)
	}
	backends[b.Name] = b
	return nil
}

// MustRegister is like Register but panics on error.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns backends matching usage, sorted by name.
func List(usage Usage) []Backend {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Backend, 0, len(backends))
	for _, b := range backends {
		if b.Usage.allows(usage) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Names returns backend names matching usage, sorted.
func Names(usage Usage) []string {
	bs := List(usage)
	n := make([]string, 0, len(bs))
	for _, b := range bs {
		n = append(n, b.Name)
	}
	return n
}

// Open opens the named backend if it exists and matches usage.
func Open(name string, usage Usage, opts Options, logger *zap.Logger) (storage.Store, error) {
	mu.RLock()
	b, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("registry: unknown backend %q (available: %v)", name, Names(usage))
	}
	if !b.Usage.allows(usage) {
		return nil, fmt.Errorf("registry: backend %q not supported in this binary", name)
	}
	if err := opts.checkKnown(name, b.Options); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return b.Open(opts, logger.Named(name))
}
