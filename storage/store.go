// Package storage defines the content-addressed store that packages are
// published to, and the helpers shared by its backends.
package storage

import (
	"context"

	"github.com/ipfs/go-cid"
)

// Store is a minimal content-addressable store for serialized packages.
//
// Contract:
//   - Put MUST be idempotent.
//   - Stored objects MUST be immutable.
//   - CIDs MUST be derived from the bytes written (see cidutil.Sum).
//   - Get MUST return ErrNotFound when the CID is absent.
type Store interface {
	Put(ctx context.Context, data []byte) (cid.Cid, error)
	Get(ctx context.Context, id cid.Cid) ([]byte, error)
	Has(ctx context.Context, id cid.Cid) (bool, error)
}

// Closer is implemented by stores holding resources such as connections.
type Closer interface {
	Close() error
}

// Close closes s when it implements Closer.
func Close(s Store) error {
	if c, ok := s.(Closer); ok {
		return c.Close()
	}
	return nil
}
