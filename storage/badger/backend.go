package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
	"github.com/poiesic/quadkv/core"
	"github.com/poiesic/quadkv/storage"
)

// Backend wraps a BadgerDB instance and stores one blob envelope per graph key.
type Backend struct {
	db     *badger.DB
	logger *slog.Logger
}

var _ storage.BlobBackend = (*Backend)(nil)

// badgerLoggerAdapter adapts slog.Logger to badger.Logger interface.
type badgerLoggerAdapter struct {
	logger *slog.Logger
}

var _ badger.Logger = (*badgerLoggerAdapter)(nil)

func (bl *badgerLoggerAdapter) Errorf(msg string, items ...any) {
	bl.logger.Error(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Warningf(msg string, items ...any) {
	bl.logger.Warn(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Infof(msg string, items ...any) {
	bl.logger.Info(fmt.Sprintf(msg, items...))
}

func (bl *badgerLoggerAdapter) Debugf(msg string, items ...any) {
	bl.logger.Debug(fmt.Sprintf(msg, items...))
}

// BackendOption configures a Backend.
type BackendOption func(*Backend)

// WithLogger routes the backend's own diagnostics and Badger's internal
// logging to logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) BackendOption {
	return func(b *Backend) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// OpenBackend opens a BadgerDB database at the specified path.
// Creates the directory if it doesn't exist.
func OpenBackend(filePath string, inMemory bool, backendOpts ...BackendOption) (*Backend, error) {
	backend := &Backend{logger: slog.Default()}
	for _, opt := range backendOpts {
		opt(backend)
	}

	var opts badger.Options

	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		// Ensure directory exists
		info, err := os.Stat(filePath)
		if err != nil {
			if os.IsNotExist(err) {
				if err := os.MkdirAll(filePath, 0755); err != nil {
					return nil, err
				}
				info, err = os.Stat(filePath)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("%s is not a directory", filePath)
		}
		opts = badger.DefaultOptions(filePath)
	}

	opts.Logger = &badgerLoggerAdapter{logger: backend.logger}
	opts.Compression = options.None

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	backend.db = db
	return backend, nil
}

// Close closes the BadgerDB database.
func (b *Backend) Close() error {
	return b.db.Close()
}

// IsClosed returns true if the database is closed.
func (b *Backend) IsClosed() bool {
	return b.db.IsClosed()
}

// WithTx executes a function within a BadgerDB transaction.
// If isWrite is true, creates a read-write transaction.
// The transaction is automatically discarded if fn returns an error.
func (b *Backend) WithTx(fn func(tx *badger.Txn) error, isWrite bool) error {
	if b.db.IsClosed() {
		return unavailable(storage.ErrStorageClosed)
	}
	tx := b.db.NewTransaction(isWrite)
	defer tx.Discard()
	return fn(tx)
}

// ReadBlob retrieves the blob stored at key.
// Badger reads are linearizable, so both consistency levels read the
// latest committed value.
func (b *Backend) ReadBlob(ctx context.Context, key core.Key, consistency core.Consistency) (*core.Blob, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if consistency == core.ConsistencyEventual {
		b.logger.Debug("eventual read served from latest commit", "key", key.String())
	}

	var blob *core.Blob
	err := b.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeGraphKey(key))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return nil
			}
			return unavailable(err)
		}

		var decodeErr error
		err = item.Value(func(val []byte) error {
			blob, _, decodeErr = storage.UnmarshalBlob(val)
			return nil
		})
		if err != nil {
			return unavailable(err)
		}
		if decodeErr != nil {
			return &core.ParseError{Format: "envelope", Position: key.String(), Err: decodeErr}
		}

		if exp := item.ExpiresAt(); exp > 0 {
			blob.ExpiresAt = time.Unix(int64(exp), 0).UTC()
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return blob, nil
}

// WriteBlob overwrites the blob at key in a single transaction.
func (b *Backend) WriteBlob(ctx context.Context, key core.Key, blob *core.Blob, expireIn time.Duration) (*core.Commit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	entry := badger.NewEntry(makeGraphKey(key), storage.MarshalBlob(blob, now))
	commit := &core.Commit{
		Key:    key,
		Digest: blob.Digest,
		Size:   len(blob.Data),
	}
	if commit.Digest == "" {
		commit.Digest = core.DigestOf(blob.Data)
	}
	if expireIn > 0 {
		entry = entry.WithTTL(expireIn)
		commit.ExpiresAt = now.Add(expireIn)
	}

	err := b.WithTx(func(tx *badger.Txn) error {
		if err := tx.SetEntry(entry); err != nil {
			return unavailable(err)
		}
		if err := tx.Commit(); err != nil {
			return unavailable(err)
		}
		return nil
	}, true)
	if err != nil {
		return nil, err
	}

	b.logger.Debug("wrote graph blob", "key", key.String(), "bytes", commit.Size, "ttl", expireIn)
	return commit, nil
}

// DeleteBlob removes the blob at key.
func (b *Backend) DeleteBlob(ctx context.Context, key core.Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return b.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeGraphKey(key)); err != nil {
			return unavailable(err)
		}
		if err := tx.Commit(); err != nil {
			return unavailable(err)
		}
		return nil
	}, true)
}

// ListKeys returns the live graph keys under prefix, in key order.
// Expired blobs are skipped by Badger's iterator.
func (b *Backend) ListKeys(ctx context.Context, prefix core.Key) ([]core.Key, error) {
	var keys []core.Key

	err := b.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = makeGraphKey(prefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			key, err := parseGraphKey(iter.Item().Key())
			if err != nil {
				b.logger.Warn("skipping undecodable key", "err", err)
				continue
			}
			keys = append(keys, key)
		}
		return nil
	}, false)

	if err != nil {
		return nil, err
	}
	return keys, nil
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %w", core.ErrBackendUnavailable, err)
}
