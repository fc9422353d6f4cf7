package graph

import (
	"errors"
	"slices"
	"testing"

	"github.com/cayleygraph/quad"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func q(s, p, o string) quad.Quad {
	return quad.Quad{Subject: quad.IRI(s), Predicate: quad.IRI(p), Object: quad.IRI(o)}
}

func qg(s, p, o, g string) quad.Quad {
	out := q(s, p, o)
	out.Label = quad.IRI(g)
	return out
}

func TestStore_AddIsSetSemantics(t *testing.T) {
	s := NewStore()

	assert.True(t, s.Add(q("ex:s", "ex:p", "ex:o")))
	assert.False(t, s.Add(q("ex:s", "ex:p", "ex:o")), "duplicate add is a no-op")
	assert.True(t, s.Add(qg("ex:s", "ex:p", "ex:o", "ex:g")), "graph name is part of identity")
	assert.Equal(t, 2, s.Len())
}

func TestStore_AddRejectsIncompleteQuads(t *testing.T) {
	s := NewStore()
	assert.False(t, s.Add(quad.Quad{Subject: quad.IRI("ex:s"), Predicate: quad.IRI("ex:p")}))
	assert.Equal(t, 0, s.Len())
}

func TestStore_CanonicalizesNativeLiterals(t *testing.T) {
	s := NewStore()
	native := quad.Quad{Subject: quad.IRI("ex:s"), Predicate: quad.IRI("ex:age"), Object: quad.Int(42)}
	typed := quad.Quad{
		Subject:   quad.IRI("ex:s"),
		Predicate: quad.IRI("ex:age"),
		Object:    quad.TypedString{Value: "42", Type: XSDInteger},
	}

	require.True(t, s.Add(native))
	assert.False(t, s.Add(typed), "typed and native forms are the same literal")
	assert.True(t, s.Has(typed))
	assert.True(t, s.Has(native))
}

func TestStore_Remove(t *testing.T) {
	s := NewStore()
	s.AddAll(q("ex:a", "ex:p", "ex:1"), q("ex:b", "ex:p", "ex:2"), q("ex:c", "ex:p", "ex:3"))

	assert.True(t, s.Remove(q("ex:a", "ex:p", "ex:1")))
	assert.False(t, s.Remove(q("ex:a", "ex:p", "ex:1")))
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Has(q("ex:b", "ex:p", "ex:2")))
	assert.True(t, s.Has(q("ex:c", "ex:p", "ex:3")))

	// Index must stay consistent after the swap-remove.
	assert.True(t, s.Remove(q("ex:c", "ex:p", "ex:3")))
	assert.Equal(t, []quad.Quad{q("ex:b", "ex:p", "ex:2")}, s.Quads())
}

func TestStore_Import(t *testing.T) {
	s := NewStore()
	input := []quad.Quad{q("ex:a", "ex:p", "ex:1"), q("ex:a", "ex:p", "ex:1"), q("ex:b", "ex:p", "ex:2")}

	n, err := s.Import(func(yield func(quad.Quad, error) bool) {
		for _, in := range input {
			if !yield(in, nil) {
				return
			}
		}
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, s.Len())
}

func TestStore_ImportStopsOnError(t *testing.T) {
	s := NewStore()
	boom := errors.New("boom")

	n, err := s.Import(func(yield func(quad.Quad, error) bool) {
		if !yield(q("ex:a", "ex:p", "ex:1"), nil) {
			return
		}
		yield(quad.Quad{}, boom)
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, n)
}

func TestStore_Match(t *testing.T) {
	s := NewStore()
	s.AddAll(
		q("ex:a", "ex:p", "ex:1"),
		q("ex:b", "ex:p", "ex:2"),
		qg("ex:a", "ex:p", "ex:3", "ex:g"),
	)

	defaultOnly := slices.Collect(s.Match(Pattern{Subject: quad.IRI("ex:a")}))
	assert.Equal(t, []quad.Quad{q("ex:a", "ex:p", "ex:1")}, defaultOnly)

	named := slices.Collect(s.Match(Pattern{Scope: ScopeNamed}))
	assert.Equal(t, []quad.Quad{qg("ex:a", "ex:p", "ex:3", "ex:g")}, named)

	all := slices.Collect(s.Match(Pattern{Predicate: quad.IRI("ex:p"), Scope: ScopeAll}))
	assert.Len(t, all, 3)

	exact := slices.Collect(s.Match(Pattern{Label: quad.IRI("ex:g")}))
	assert.Len(t, exact, 1)
}

func TestStore_ClearAndGraphs(t *testing.T) {
	s := NewStore()
	s.AddAll(
		q("ex:a", "ex:p", "ex:1"),
		qg("ex:a", "ex:p", "ex:2", "ex:g1"),
		qg("ex:a", "ex:p", "ex:3", "ex:g2"),
	)
	assert.Equal(t, []quad.Value{quad.IRI("ex:g1"), quad.IRI("ex:g2")}, s.Graphs())

	assert.Equal(t, 1, s.Clear(quad.IRI("ex:g1"), ScopeAll))
	assert.Equal(t, 1, s.Clear(nil, ScopeDefault))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, 1, s.Clear(nil, ScopeAll))
	assert.Equal(t, 0, s.Len())
}

func TestStore_CloneIsIndependent(t *testing.T) {
	s := NewStore()
	s.Add(q("ex:a", "ex:p", "ex:1"))

	c := s.Clone()
	c.Add(q("ex:b", "ex:p", "ex:2"))
	c.Remove(q("ex:a", "ex:p", "ex:1"))

	assert.Equal(t, 1, s.Len())
	assert.True(t, s.Has(q("ex:a", "ex:p", "ex:1")))
	assert.False(t, s.Equal(c))
}

func TestStore_Replace(t *testing.T) {
	s := NewStore()
	s.Add(q("ex:a", "ex:p", "ex:1"))
	other := NewStore()
	other.AddAll(q("ex:b", "ex:p", "ex:2"), q("ex:c", "ex:p", "ex:3"))
	want := other.Clone()

	s.Replace(other)
	assert.True(t, s.Equal(want))
	assert.Equal(t, 0, other.Len())
}

func TestStore_EqualIgnoresOrder(t *testing.T) {
	a := NewStore()
	a.AddAll(q("ex:a", "ex:p", "ex:1"), q("ex:b", "ex:p", "ex:2"))
	b := NewStore()
	b.AddAll(q("ex:b", "ex:p", "ex:2"), q("ex:a", "ex:p", "ex:1"))

	assert.True(t, a.Equal(b))
}

func TestCanonical(t *testing.T) {
	assert.Nil(t, Canonical(nil))
	assert.Equal(t, quad.IRI("ex:a"), Canonical(quad.IRI("ex:a")))
	assert.Equal(t, quad.TypedString{Value: "true", Type: XSDBoolean}, Canonical(quad.Bool(true)))
	assert.Equal(t, quad.String("a"), Canonical(quad.TypedString{Value: "a", Type: XSDString}))
	assert.Equal(t, quad.TypedString{Value: "7", Type: XSDInteger}, Canonical(quad.TypedString{Value: "7", Type: XSDInteger}))
	assert.True(t, IsLiteral(quad.String("x")))
	assert.False(t, IsLiteral(quad.BNode("b0")))
}

func TestStore_ExplicitStringTypeIsSimpleLiteral(t *testing.T) {
	s := NewStore()
	s.Add(quad.Quad{Subject: quad.IRI("ex:s"), Predicate: quad.IRI("ex:p"), Object: quad.TypedString{Value: "a", Type: XSDString}})

	assert.True(t, s.Has(quad.Quad{Subject: quad.IRI("ex:s"), Predicate: quad.IRI("ex:p"), Object: quad.String("a")}))
	assert.False(t, s.Add(quad.Quad{Subject: quad.IRI("ex:s"), Predicate: quad.IRI("ex:p"), Object: quad.String("a")}))
}

func bq(s, p string, o quad.Value, g quad.Value) quad.Quad {
	var subj quad.Value = quad.IRI(s)
	if len(s) > 2 && s[:2] == "_:" {
		subj = quad.BNode(s[2:])
	}
	return quad.Quad{Subject: subj, Predicate: quad.IRI(p), Object: o, Label: g}
}

func TestIsomorphic(t *testing.T) {
	build := func(quads ...quad.Quad) *Store {
		s := NewStore()
		s.AddAll(quads...)
		return s
	}

	a := build(
		bq("_:x", "ex:name", quad.String("Alice"), nil),
		bq("_:x", "ex:knows", quad.BNode("y"), nil),
		bq("_:y", "ex:name", quad.String("Bob"), quad.IRI("ex:g")),
		bq("ex:s", "ex:p", quad.IRI("ex:o"), nil),
	)
	relabeled := build(
		bq("_:b1", "ex:name", quad.String("Bob"), quad.IRI("ex:g")),
		bq("ex:s", "ex:p", quad.IRI("ex:o"), nil),
		bq("_:b0", "ex:knows", quad.BNode("b1"), nil),
		bq("_:b0", "ex:name", quad.String("Alice"), nil),
	)
	swapped := build(
		bq("_:x", "ex:name", quad.String("Bob"), nil),
		bq("_:x", "ex:knows", quad.BNode("y"), nil),
		bq("_:y", "ex:name", quad.String("Alice"), quad.IRI("ex:g")),
		bq("ex:s", "ex:p", quad.IRI("ex:o"), nil),
	)

	assert.True(t, Isomorphic(a, a.Clone()))
	assert.True(t, Isomorphic(a, relabeled))
	assert.False(t, a.Equal(relabeled))
	assert.False(t, Isomorphic(a, swapped))
	assert.False(t, Isomorphic(a, build(bq("ex:s", "ex:p", quad.IRI("ex:o"), nil))))
}

func TestIsomorphic_SymmetricBlankNodes(t *testing.T) {
	ring := func(a, b, c string) *Store {
		s := NewStore()
		s.AddAll(
			bq("_:"+a, "ex:next", quad.BNode(b), nil),
			bq("_:"+b, "ex:next", quad.BNode(c), nil),
			bq("_:"+c, "ex:next", quad.BNode(a), nil),
		)
		return s
	}
	pair := NewStore()
	pair.AddAll(
		bq("_:a", "ex:next", quad.BNode("b"), nil),
		bq("_:b", "ex:next", quad.BNode("a"), nil),
		bq("_:c", "ex:next", quad.BNode("c"), nil),
	)

	assert.True(t, Isomorphic(ring("a", "b", "c"), ring("p", "q", "r")))
	assert.False(t, Isomorphic(ring("a", "b", "c"), pair))
}
