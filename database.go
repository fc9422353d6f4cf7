// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package quadkv

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/quadkv/codec"
	"github.com/poiesic/quadkv/core"
	"github.com/poiesic/quadkv/graph"
	"github.com/poiesic/quadkv/query"
	"github.com/poiesic/quadkv/storage"
	"github.com/poiesic/quadkv/storage/badger"
)

// Database runs SPARQL against graphs stored one per key.
//
// Each Run loads the graph, executes the query and writes the graph back.
// Calls on the same key are not serialized: concurrent writers race and
// the last write wins. Use RunBatch to order requests on one key.
type Database struct {
	backend  storage.BlobBackend
	codec    *codec.Codec
	executor *query.Executor
	pool     *ants.Pool
	logger   *slog.Logger
	owned    bool
}

// Open opens or creates a Badger-backed database in the directory at path.
func Open(path string, opts ...Option) (*Database, error) {
	backend, err := badger.OpenBackend(path, false, badger.WithLogger(NewConfig(opts...).Logger))
	if err != nil {
		return nil, err
	}
	db, err := New(backend, opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}
	db.owned = true
	return db, nil
}

// OpenInMemory opens a database whose contents are lost on Close.
func OpenInMemory(opts ...Option) (*Database, error) {
	backend, err := badger.NewMemoryBackend(badger.WithLogger(NewConfig(opts...).Logger))
	if err != nil {
		return nil, err
	}
	db, err := New(backend, opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}
	db.owned = true
	return db, nil
}

// New builds a database over an existing backend. Close does not close a
// backend passed to New.
func New(backend storage.BlobBackend, opts ...Option) (*Database, error) {
	if backend == nil {
		return nil, ErrBackendRequired
	}
	cfg := NewConfig(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cdc, err := codec.New(codec.WithDefaultFormat(cfg.DefaultFormat), codec.WithLogger(cfg.Logger))
	if err != nil {
		return nil, err
	}
	pool, err := ants.NewPool(cfg.PoolSize)
	if err != nil {
		return nil, err
	}

	return &Database{
		backend:  backend,
		codec:    cdc,
		executor: query.NewExecutor(query.WithLogger(cfg.Logger)),
		pool:     pool,
		logger:   cfg.Logger,
	}, nil
}

func (db *Database) Close() error {
	db.pool.Release()
	if !db.owned {
		return nil
	}
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// Codec returns the codec used to encode and decode graphs.
func (db *Database) Codec() *codec.Codec {
	return db.codec
}

// Run executes one load–query–persist cycle against the graph at key.
//
// An absent key behaves as an empty graph. The graph is written back
// after every successful query, even a read-only one, unless
// opts.SkipReadOnlyWrite is set. Nothing is written when validation,
// loading or execution fails.
func (db *Database) Run(ctx context.Context, key core.Key, text string, opts *core.Options) (query.Result, error) {
	opts, err := db.prepare(key, opts)
	if err != nil {
		return nil, err
	}

	store, format, err := db.load(ctx, key, opts)
	if err != nil {
		return nil, err
	}

	res, err := db.executor.Execute(ctx, store, text)
	if err != nil {
		db.logger.Debug("query failed", "key", key, "err", err)
		return nil, err
	}

	if opts.SkipReadOnlyWrite && res.Type() != query.TypeVoid {
		return res, nil
	}

	tag := opts.Format
	if tag == "" {
		tag = format.Tag
	}
	if _, err := db.save(ctx, key, store, tag, opts.ExpireIn); err != nil {
		return nil, err
	}
	return res, nil
}

// LoadGraph reads and decodes the graph at key. An absent key yields an
// empty store in the format the graph would be written in.
func (db *Database) LoadGraph(ctx context.Context, key core.Key, opts *core.Options) (*graph.Store, codec.Format, error) {
	opts, err := db.prepare(key, opts)
	if err != nil {
		return nil, codec.Format{}, err
	}
	return db.load(ctx, key, opts)
}

// SaveGraph encodes store in opts.Format, or the default format, and
// replaces the graph at key.
func (db *Database) SaveGraph(ctx context.Context, key core.Key, store *graph.Store, opts *core.Options) (*core.Commit, error) {
	opts, err := db.prepare(key, opts)
	if err != nil {
		return nil, err
	}
	return db.save(ctx, key, store, opts.Format, opts.ExpireIn)
}

// ImportGraph decodes blob and stores it at key, replacing any existing
// graph. The graph is re-encoded in opts.Format when set, otherwise in
// the blob's own format.
func (db *Database) ImportGraph(ctx context.Context, key core.Key, blob *core.Blob, opts *core.Options) (*core.Commit, error) {
	opts, err := db.prepare(key, opts)
	if err != nil {
		return nil, err
	}
	store, format, err := db.codec.Decode(blob, "")
	if err != nil {
		return nil, err
	}
	tag := opts.Format
	if tag == "" {
		tag = format.Tag
	}
	return db.save(ctx, key, store, tag, opts.ExpireIn)
}

// ExportGraph returns the graph at key serialized in format. An empty
// format keeps the stored format.
func (db *Database) ExportGraph(ctx context.Context, key core.Key, format string, consistency core.Consistency) (*core.Blob, error) {
	opts, err := db.prepare(key, &core.Options{Format: format, Consistency: consistency})
	if err != nil {
		return nil, err
	}
	store, stored, err := db.load(ctx, key, opts)
	if err != nil {
		return nil, err
	}
	if format == "" {
		format = stored.Tag
	}
	return db.codec.Encode(store, format)
}

// DeleteGraph removes the graph at key. Deleting an absent key is not an
// error.
func (db *Database) DeleteGraph(ctx context.Context, key core.Key) error {
	if err := core.ValidateKey(key); err != nil {
		return err
	}
	return db.backend.DeleteBlob(ctx, key)
}

// Keys lists the stored keys that start with prefix, in key order.
func (db *Database) Keys(ctx context.Context, prefix core.Key) ([]core.Key, error) {
	return db.backend.ListKeys(ctx, prefix)
}

// prepare validates key and opts and rejects unknown formats before any
// I/O. It never returns a nil Options.
func (db *Database) prepare(key core.Key, opts *core.Options) (*core.Options, error) {
	if err := core.ValidateKey(key); err != nil {
		return nil, err
	}
	if err := core.ValidateOptions(opts); err != nil {
		return nil, err
	}
	if opts == nil {
		opts = &core.Options{}
	}
	if opts.Format != "" {
		if _, err := db.codec.Resolve(opts.Format); err != nil {
			return nil, err
		}
	}
	return opts, nil
}

func (db *Database) load(ctx context.Context, key core.Key, opts *core.Options) (*graph.Store, codec.Format, error) {
	blob, err := db.backend.ReadBlob(ctx, key, opts.Consistency)
	if err != nil {
		return nil, codec.Format{}, fmt.Errorf("read %s: %w", key, err)
	}
	store, format, err := db.codec.Decode(blob, opts.Format)
	if err != nil {
		return nil, codec.Format{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return store, format, nil
}

func (db *Database) save(ctx context.Context, key core.Key, store *graph.Store, tag string, expireIn time.Duration) (*core.Commit, error) {
	blob, err := db.codec.Encode(store, tag)
	if err != nil {
		return nil, err
	}
	commit, err := db.backend.WriteBlob(ctx, key, blob, expireIn)
	if err != nil {
		return nil, fmt.Errorf("write %s: %w", key, err)
	}
	db.logger.Debug("graph written", "key", key, "format", blob.Format, "quads", store.Len(), "bytes", commit.Size)
	return commit, nil
}
