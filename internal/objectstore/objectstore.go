// Package objectstore abstracts the durable object store holding the
// selection artifact, per-date backups, last-known-good metadata and the
// manifest. The store offers no transactions or locks; callers rely on
// idempotent writes and precondition checks for correctness.
package objectstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when an object does not exist.
var ErrNotFound = errors.New("object not found")

// ObjectInfo describes one stored object without its body.
type ObjectInfo struct {
	Key          string
	Size         int64
	LastModified time.Time
}

// Store is the durable object store interface.
type Store interface {
	// Get downloads an object body. Returns ErrNotFound if absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put uploads an object, overwriting any existing body.
	Put(ctx context.Context, key string, body []byte) error

	// Delete removes an object. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// List returns info for all objects under the prefix, sorted by key.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Head checks existence without downloading. Returns ErrNotFound if absent.
	Head(ctx context.Context, key string) (*ObjectInfo, error)
}
