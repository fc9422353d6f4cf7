package graph

import (
	"iter"

	"github.com/cayleygraph/quad"
)

// GraphScope restricts which graphs a Pattern with a nil Label matches.
type GraphScope int

const (
	// ScopeDefault matches only the default graph.
	ScopeDefault GraphScope = iota
	// ScopeNamed matches only named graphs.
	ScopeNamed
	// ScopeAll matches every graph.
	ScopeAll
)

// Pattern selects quads. Nil Subject, Predicate or Object match anything.
// A non-nil Label matches that graph exactly; a nil Label defers to Scope.
type Pattern struct {
	Subject   quad.Value
	Predicate quad.Value
	Object    quad.Value
	Label     quad.Value
	Scope     GraphScope
}

// Matches reports whether q satisfies the pattern.
func (p Pattern) Matches(q quad.Quad) bool {
	if p.Subject != nil && p.Subject != q.Subject {
		return false
	}
	if p.Predicate != nil && p.Predicate != q.Predicate {
		return false
	}
	if p.Object != nil && p.Object != q.Object {
		return false
	}
	if p.Label != nil {
		return p.Label == q.Label
	}
	switch p.Scope {
	case ScopeDefault:
		return q.Label == nil
	case ScopeNamed:
		return q.Label != nil
	default:
		return true
	}
}

// Store is a mutable set of quads.
type Store struct {
	quads []quad.Quad
	index map[quad.Quad]int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{index: make(map[quad.Quad]int)}
}

// Len returns the number of quads.
func (s *Store) Len() int {
	return len(s.quads)
}

// Has reports whether q is in the store.
func (s *Store) Has(q quad.Quad) bool {
	_, ok := s.index[CanonicalQuad(q)]
	return ok
}

// Add inserts q and reports whether it was new.
// Quads without subject, predicate or object are ignored.
func (s *Store) Add(q quad.Quad) bool {
	if q.Subject == nil || q.Predicate == nil || q.Object == nil {
		return false
	}
	q = CanonicalQuad(q)
	if _, ok := s.index[q]; ok {
		return false
	}
	s.index[q] = len(s.quads)
	s.quads = append(s.quads, q)
	return true
}

// AddAll inserts every quad and returns how many were new.
func (s *Store) AddAll(quads ...quad.Quad) int {
	added := 0
	for _, q := range quads {
		if s.Add(q) {
			added++
		}
	}
	return added
}

// Import drains seq into the store. On the first error the quads read so
// far remain added and the error is returned.
func (s *Store) Import(seq iter.Seq2[quad.Quad, error]) (int, error) {
	added := 0
	for q, err := range seq {
		if err != nil {
			return added, err
		}
		if s.Add(q) {
			added++
		}
	}
	return added, nil
}

// Remove deletes q and reports whether it was present.
func (s *Store) Remove(q quad.Quad) bool {
	q = CanonicalQuad(q)
	i, ok := s.index[q]
	if !ok {
		return false
	}
	last := len(s.quads) - 1
	if i != last {
		moved := s.quads[last]
		s.quads[i] = moved
		s.index[moved] = i
	}
	s.quads = s.quads[:last]
	delete(s.index, q)
	return true
}

// All yields every quad. The store must not be mutated during iteration.
func (s *Store) All() iter.Seq[quad.Quad] {
	return func(yield func(quad.Quad) bool) {
		for _, q := range s.quads {
			if !yield(q) {
				return
			}
		}
	}
}

// Quads returns a copy of the store's contents.
func (s *Store) Quads() []quad.Quad {
	out := make([]quad.Quad, len(s.quads))
	copy(out, s.quads)
	return out
}

// Match yields quads satisfying p.
func (s *Store) Match(p Pattern) iter.Seq[quad.Quad] {
	p.Subject = Canonical(p.Subject)
	p.Predicate = Canonical(p.Predicate)
	p.Object = Canonical(p.Object)
	p.Label = Canonical(p.Label)
	return func(yield func(quad.Quad) bool) {
		for _, q := range s.quads {
			if p.Matches(q) && !yield(q) {
				return
			}
		}
	}
}

// Graphs returns the distinct named graph labels, in first-seen order.
func (s *Store) Graphs() []quad.Value {
	seen := make(map[quad.Value]struct{})
	var labels []quad.Value
	for _, q := range s.quads {
		if q.Label == nil {
			continue
		}
		if _, ok := seen[q.Label]; ok {
			continue
		}
		seen[q.Label] = struct{}{}
		labels = append(labels, q.Label)
	}
	return labels
}

// Clear removes the quads matching scope, or the single graph label when
// label is non-nil. It returns the number removed.
func (s *Store) Clear(label quad.Value, scope GraphScope) int {
	var doomed []quad.Quad
	for q := range s.Match(Pattern{Label: label, Scope: scope}) {
		doomed = append(doomed, q)
	}
	for _, q := range doomed {
		s.Remove(q)
	}
	return len(doomed)
}

// Clone returns an independent copy.
func (s *Store) Clone() *Store {
	c := &Store{
		quads: make([]quad.Quad, len(s.quads)),
		index: make(map[quad.Quad]int, len(s.index)),
	}
	copy(c.quads, s.quads)
	for q, i := range s.index {
		c.index[q] = i
	}
	return c
}

// Replace makes s hold exactly the contents of other.
// other must not be used afterwards.
func (s *Store) Replace(other *Store) {
	s.quads = other.quads
	s.index = other.index
	other.quads = nil
	other.index = make(map[quad.Quad]int)
}

// Equal reports set equality.
func (s *Store) Equal(other *Store) bool {
	if s.Len() != other.Len() {
		return false
	}
	for _, q := range s.quads {
		if _, ok := other.index[q]; !ok {
			return false
		}
	}
	return true
}
