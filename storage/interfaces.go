package storage

import (
	"context"
	"time"

	"github.com/poiesic/quadkv/core"
)

// BlobBackend stores one serialized graph per key.
// Implementations must be thread-safe and support concurrent access.
type BlobBackend interface {
	// ReadBlob retrieves the blob stored at key.
	// Returns nil, nil if no blob exists.
	// Returns an error wrapping core.ErrBackendUnavailable if the store
	// cannot be reached.
	ReadBlob(ctx context.Context, key core.Key, consistency core.Consistency) (*core.Blob, error)

	// WriteBlob overwrites the blob at key.
	// A positive expireIn sets a TTL; zero stores the blob without expiry.
	// Writing the same content twice leaves the same observable state.
	WriteBlob(ctx context.Context, key core.Key, blob *core.Blob, expireIn time.Duration) (*core.Commit, error)

	// DeleteBlob removes the blob at key. Deleting an absent key is not an error.
	DeleteBlob(ctx context.Context, key core.Key) error

	// ListKeys returns the keys starting with prefix, in key order.
	// A nil prefix lists every key.
	ListKeys(ctx context.Context, prefix core.Key) ([]core.Key, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
