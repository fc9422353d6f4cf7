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
	"fmt"
	"io"
	"time"

	"github.com/poiesic/quadkv/codec"
	"github.com/poiesic/quadkv/core"
	"github.com/poiesic/quadkv/storage"
)

// Config holds configuration for a reencode run.
type Config struct {
	// Format is the target serialization tag. Empty means the codec default.
	Format string

	// Prefix limits the run to keys under it. Nil covers every key.
	Prefix core.Key

	// Consistency is the read guarantee used when loading graphs
	Consistency core.Consistency

	// BatchSize is the number of graphs to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of graphs)
	ReportInterval int

	// MaxRetries is the maximum number of attempts for each backend call
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      DefaultBatchSize,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Validate checks the numeric settings.
func (c *Config) Validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: batch size must be greater than 0", ErrInvalidConfig)
	}
	if c.ReportInterval <= 0 {
		return fmt.Errorf("%w: report interval must be greater than 0", ErrInvalidConfig)
	}
	if c.MaxRetries <= 0 {
		return fmt.Errorf("%w: max retries must be greater than 0", ErrInvalidConfig)
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("%w: retry delay must not be negative", ErrInvalidConfig)
	}
	return nil
}

// Reencoder rewrites every graph under a prefix in one format.
type Reencoder struct {
	config    *Config
	progress  io.Writer
	processor *BatchProcessor
	iterator  *KeyIterator
}

// NewReencoder creates a new reencoder. The target format is resolved
// against cdc before anything is read.
// progress: where to write progress output (typically os.Stderr)
func NewReencoder(backend storage.BlobBackend, cdc *codec.Codec, config *Config, progress io.Writer) (*Reencoder, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := core.ValidateOptions(&core.Options{Consistency: config.Consistency}); err != nil {
		return nil, err
	}

	target := cdc.Default()
	if config.Format != "" {
		f, err := cdc.Resolve(config.Format)
		if err != nil {
			return nil, err
		}
		target = f
	}
	if progress == nil {
		progress = io.Discard
	}

	processor := NewBatchProcessor(backend, cdc, target, config.MaxRetries, config.RetryDelay)
	processor.consistency = config.Consistency

	return &Reencoder{
		config:    config,
		progress:  progress,
		processor: processor,
		iterator:  NewKeyIterator(backend, config.Prefix, config.BatchSize),
	}, nil
}

// Target returns the format graphs are rewritten in.
func (r *Reencoder) Target() codec.Format {
	return r.processor.target
}

// Run reencodes every graph under the configured prefix.
func (r *Reencoder) Run(ctx context.Context) (*Stats, error) {
	keys, err := r.iterator.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}

	stats := &Stats{}
	if len(keys) == 0 {
		fmt.Fprintf(r.progress, "No graphs found under %q\n", r.config.Prefix.String())
		return stats, nil
	}

	fmt.Fprintf(r.progress, "Reencoding %d graphs as %s (batch size: %d)\n",
		len(keys), r.processor.target.Tag, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, len(keys), r.config.ReportInterval)
	tracker.Start()

	err = forEachBatch(ctx, keys, r.config.BatchSize, func(batch []core.Key) error {
		batchStats, err := r.processor.Process(ctx, batch)
		stats.add(batchStats)
		if err != nil {
			return err
		}
		tracker.Increment(len(batch))
		return nil
	})
	if err != nil {
		return stats, err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reencoding complete. %d rewritten, %d unchanged, %d vanished in %v\n",
		stats.Rewritten, stats.Unchanged, stats.Vanished, elapsed.Round(time.Millisecond))

	return stats, nil
}
