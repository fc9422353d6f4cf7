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

package reencode

import (
	"context"

	"github.com/poiesic/quadkv/core"
	"github.com/poiesic/quadkv/storage"
)

const (
	// DefaultBatchSize is the default number of keys handed to each batch
	DefaultBatchSize = 100
)

// KeyIterator walks the keys under a prefix in batches.
type KeyIterator struct {
	backend   storage.BlobBackend
	prefix    core.Key
	batchSize int
}

// NewKeyIterator creates a new key iterator. A nil prefix walks every key.
// batchSize: number of keys per batch (defaults when <= 0)
func NewKeyIterator(backend storage.BlobBackend, prefix core.Key, batchSize int) *KeyIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &KeyIterator{
		backend:   backend,
		prefix:    prefix,
		batchSize: batchSize,
	}
}

// Keys lists every key the iterator will visit.
func (it *KeyIterator) Keys(ctx context.Context) ([]core.Key, error) {
	return it.backend.ListKeys(ctx, it.prefix)
}

// ForEach calls fn for each batch of keys in key order.
// Iteration stops on the first error from fn.
// Context cancellation is checked between batches.
func (it *KeyIterator) ForEach(ctx context.Context, fn func([]core.Key) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	keys, err := it.Keys(ctx)
	if err != nil {
		return err
	}
	return forEachBatch(ctx, keys, it.batchSize, fn)
}

func forEachBatch(ctx context.Context, keys []core.Key, size int, fn func([]core.Key) error) error {
	for i := 0; i < len(keys); i += size {
		end := min(i+size, len(keys))
		if err := fn(keys[i:end]); err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return nil
}
