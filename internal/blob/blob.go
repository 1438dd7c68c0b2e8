// Package blob provides byte storage keyed by opaque identifiers. The core
// never talks to a filesystem or bucket directly; it depends on Store only.
package blob

import (
	"context"
	"time"
)

// Store is id-addressed byte storage. Keys are assigned by the caller and
// never reinterpreted by the store.
type Store interface {
	// Put writes data under key, replacing any previous content.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the full content stored under key, or
	// models.ErrNotFound if the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes the blob under key, or models.ErrNotFound if absent.
	Delete(ctx context.Context, key string) error

	// List returns every key currently present. Order is unspecified.
	List(ctx context.Context) ([]string, error)

	// Stat returns when the blob under key was written, or
	// models.ErrNotFound if the key is absent. The reconciliation sweep
	// uses this to leave recently written blobs alone.
	Stat(ctx context.Context, key string) (time.Time, error)
}
