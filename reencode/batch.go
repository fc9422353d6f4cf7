package reencode

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/quadkv/codec"
	"github.com/poiesic/quadkv/core"
	"github.com/poiesic/quadkv/storage"
)

// Stats counts what a run did with each graph.
type Stats struct {
	Rewritten int
	Unchanged int // already in the target format
	Vanished  int // deleted or expired while the run was in progress
}

func (s *Stats) add(o Stats) {
	s.Rewritten += o.Rewritten
	s.Unchanged += o.Unchanged
	s.Vanished += o.Vanished
}

// BatchProcessor rewrites a batch of graphs in the target format.
type BatchProcessor struct {
	backend        storage.BlobBackend
	codec          *codec.Codec
	target         codec.Format
	consistency    core.Consistency
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of attempts for each backend call
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(backend storage.BlobBackend, cdc *codec.Codec, target codec.Format, maxRetries int, retryBaseDelay time.Duration) *BatchProcessor {
	return &BatchProcessor{
		backend:        backend,
		codec:          cdc,
		target:         target,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process reencodes every graph in keys. It stops at the first graph that
// cannot be read, decoded or written.
func (bp *BatchProcessor) Process(ctx context.Context, keys []core.Key) (Stats, error) {
	var stats Stats
	for _, key := range keys {
		outcome, err := bp.processOne(ctx, key)
		if err != nil {
			return stats, fmt.Errorf("reencode %s: %w", key, err)
		}
		switch outcome {
		case outcomeRewritten:
			stats.Rewritten++
		case outcomeUnchanged:
			stats.Unchanged++
		case outcomeVanished:
			stats.Vanished++
		}
	}
	return stats, nil
}

type outcome int

const (
	outcomeRewritten outcome = iota
	outcomeUnchanged
	outcomeVanished
)

func (bp *BatchProcessor) processOne(ctx context.Context, key core.Key) (outcome, error) {
	var blob *core.Blob
	err := RetryWithBackoff(ctx, func() error {
		var err error
		blob, err = bp.backend.ReadBlob(ctx, key, bp.consistency)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return 0, err
	}
	if blob == nil {
		return outcomeVanished, nil
	}
	if blob.Format == bp.target.Tag {
		return outcomeUnchanged, nil
	}

	var expireIn time.Duration
	if !blob.ExpiresAt.IsZero() {
		expireIn = time.Until(blob.ExpiresAt)
		if expireIn <= 0 {
			return outcomeVanished, nil
		}
	}

	store, _, err := bp.codec.Decode(blob, "")
	if err != nil {
		return 0, err
	}
	out, err := bp.codec.Encode(store, bp.target.Tag)
	if err != nil {
		return 0, err
	}

	err = RetryWithBackoff(ctx, func() error {
		_, err := bp.backend.WriteBlob(ctx, key, out, expireIn)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return 0, err
	}
	slog.Debug("reencoded graph", "key", key, "from", blob.Format, "to", out.Format, "quads", store.Len())
	return outcomeRewritten, nil
}
