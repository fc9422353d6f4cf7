package query

import (
	"iter"
	"sync/atomic"
)

// Stream is a single-use lazy sequence. The first iteration of All
// yields the items; any later iteration yields nothing.
type Stream[T any] struct {
	seq      iter.Seq[T]
	consumed atomic.Bool
}

// NewStream wraps seq. A nil seq behaves as an empty sequence.
func NewStream[T any](seq iter.Seq[T]) *Stream[T] {
	return &Stream[T]{seq: seq}
}

// All returns the sequence. Only the first range over any value returned
// by All produces items.
func (s *Stream[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		if !s.consumed.CompareAndSwap(false, true) || s.seq == nil {
			return
		}
		for item := range s.seq {
			if !yield(item) {
				return
			}
		}
	}
}

// Collect drains the stream into a slice.
func (s *Stream[T]) Collect() []T {
	var out []T
	for item := range s.All() {
		out = append(out, item)
	}
	return out
}

// Consumed reports whether iteration has started.
func (s *Stream[T]) Consumed() bool {
	return s.consumed.Load()
}
