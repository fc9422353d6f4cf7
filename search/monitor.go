package search

import (
	"github.com/poiesic/quadkv/core"
)

// SearchMonitor provides hooks to observe a search.
// Implement this interface to track intermediate steps and results.
// GraphSearched and GraphFailed may be called from several goroutines.
type SearchMonitor interface {
	Start(query string)
	AfterKeyListing(keys []core.Key)
	GraphSearched(key core.Key, hits int)
	GraphFailed(key core.Key, err error)
	Finish(hits int)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                  {}
func (n *noopMonitor) AfterKeyListing(_ []core.Key)    {}
func (n *noopMonitor) GraphSearched(_ core.Key, _ int) {}
func (n *noopMonitor) GraphFailed(_ core.Key, _ error) {}
func (n *noopMonitor) Finish(_ int)                    {}
