package registry

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"xdao.co/npk/storage"
)

// Config describes how to open one or more backends.
//
// WritePolicy values:
//   - "first" (default): write only to the first backend; reads fall back in order
//   - "all": write to all backends and require CID equality (see storage.ReplicatingStore)
type Config struct {
	WritePolicy string          `json:"write_policy,omitempty" yaml:"write_policy,omitempty"`
	Backends    []BackendConfig `json:"backends" yaml:"backends"`
}

type BackendConfig struct {
	// Name is the registered backend name (e.g. "localfs", "grpc", "ipfs").
	Name string `json:"name" yaml:"name"`
	// ID is an optional alias used in per-backend reporting. Defaults to Name.
	ID      string  `json:"id,omitempty" yaml:"id,omitempty"`
	Options Options `json:"options,omitempty" yaml:"options,omitempty"`
}

func (b BackendConfig) id() string {
	if b.ID != "" {
		return b.ID
	}
	return b.Name
}

func (c Config) Validate() error {
	if len(c.Backends) == 0 {
		return errors.New("registry: at least one backend is required")
	}
	seen := make(map[string]struct{}, len(c.Backends))
	for _, b := range c.Backends {
		if b.Name == "" {
			return errors.New("registry: backend name is required")
		}
		if _, ok := seen[b.id()]; ok {
			return fmt.Errorf("registry: duplicate backend id %q", b.id())
		}
		seen[b.id()] = struct{}{}
	}
	switch c.WritePolicy {
	case "", "first", "all":
		return nil
	default:
		return fmt.Errorf("registry: invalid write_policy %q", c.WritePolicy)
	}
}

// Open opens every configured backend and combines them per WritePolicy.
//
// If preferred is non-empty, the backend with that name or ID is moved to
// the front and so receives writes under the "first" policy.
func (c Config) Open(usage Usage, preferred string, logger *zap.Logger) (storage.Store, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	ordered := append([]BackendConfig(nil), c.Backends...)
	if preferred != "" {
		idx := -1
		for i := range ordered {
			if ordered[i].Name == preferred || ordered[i].ID == preferred {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("registry: preferred backend %q not found in config", preferred)
		}
		if idx != 0 {
			b := ordered[idx]
			copy(ordered[1:idx+1], ordered[0:idx])
			ordered[0] = b
		}
	}

	named := make([]storage.NamedStore, 0, len(ordered))
	for _, b := range ordered {
		s, err := Open(b.Name, usage, b.Options, logger)
		if err != nil {
			for i := len(named) - 1; i >= 0; i-- {
				_ = storage.Close(named[i].Store)
			}
			return nil, err
		}
		named = append(named, storage.NamedStore{Name: b.id(), Store: s})
	}

	if len(named) == 1 {
		return named[0].Store, nil
	}

	switch c.WritePolicy {
	case "all":
		return storage.ReplicatingStore{Backends: named}, nil
	default:
		stores := make([]storage.Store, 0, len(named))
		for _, n := range named {
			stores = append(stores, n.Store)
		}
		return storage.MultiStore{Stores: stores}, nil
	}
}
