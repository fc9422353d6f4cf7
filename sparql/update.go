package sparql

import (
	"github.com/cayleygraph/quad"

	"github.com/poiesic/quadkv/graph"
)

// applyUpdate runs each operation in order. Later operations observe the
// effects of earlier ones.
func (ev *evaluator) applyUpdate(u *updateAST) error {
	for _, op := range u.ops {
		if err := ev.ctx.Err(); err != nil {
			return err
		}
		if err := ev.applyOp(op); err != nil {
			return err
		}
	}
	return nil
}

func (ev *evaluator) applyOp(op updateOp) error {
	switch op := op.(type) {
	case insertDataOp:
		fresh := blankRenamer(freshPrefix(), 0)
		for _, qp := range op.quads {
			if q, ok := instantiate(qp, nil, nil, fresh); ok {
				ev.ds.Add(q)
			}
		}
	case deleteDataOp:
		for _, qp := range op.quads {
			if q, ok := instantiate(qp, nil, nil, nil); ok {
				ev.ds.Remove(q)
			}
		}
	case deleteWhereOp:
		sols, err := ev.evalGroup(patternGroup(op.patterns), []Solution{{}}, node{})
		if err != nil {
			return err
		}
		ev.removeAll(collect(op.patterns, sols, nil, false))
	case modifyOp:
		active := node{}
		if op.with != nil {
			active = constNode(op.with)
		}
		sols, err := ev.evalGroup(op.where, []Solution{{}}, active)
		if err != nil {
			return err
		}
		deletes := collect(op.deletes, sols, op.with, false)
		inserts := collect(op.inserts, sols, op.with, true)
		ev.removeAll(deletes)
		for _, q := range inserts {
			ev.ds.Add(q)
		}
	case clearOp:
		switch op.target {
		case targetGraph:
			ev.ds.Clear(op.graph, graph.ScopeNamed)
		case targetDefault:
			ev.ds.Clear(nil, graph.ScopeDefault)
		case targetNamed:
			ev.ds.Clear(nil, graph.ScopeNamed)
		case targetAll:
			ev.ds.Clear(nil, graph.ScopeAll)
		}
	case createOp:
		// Graphs exist as soon as they hold a quad.
	}
	return nil
}

func (ev *evaluator) removeAll(quads []quad.Quad) {
	for _, q := range quads {
		ev.ds.Remove(q)
	}
}

// collect instantiates templates for every solution. Quads are gathered
// before any are applied so the WHERE results stay stable.
func collect(templates []quadPattern, sols []Solution, defaultGraph quad.Value, renameBlanks bool) []quad.Quad {
	var out []quad.Quad
	prefix := freshPrefix()
	for i, sol := range sols {
		var fresh func(quad.BNode) quad.Value
		if renameBlanks {
			fresh = blankRenamer(prefix, i)
		}
		for _, tp := range templates {
			if q, ok := instantiate(tp, sol, defaultGraph, fresh); ok {
				out = append(out, q)
			}
		}
	}
	return out
}

// patternGroup turns the quad patterns of DELETE WHERE into a group.
func patternGroup(patterns []quadPattern) *groupPattern {
	g := &groupPattern{}
	var defaults []triplePattern
	for _, qp := range patterns {
		if qp.g.isZero() {
			defaults = append(defaults, qp.triplePattern)
			continue
		}
		g.elements = append(g.elements, graphElem{
			graph: qp.g,
			group: &groupPattern{elements: []element{bgpElem{patterns: []triplePattern{qp.triplePattern}}}},
		})
	}
	if len(defaults) > 0 {
		g.elements = append([]element{bgpElem{patterns: defaults}}, g.elements...)
	}
	return g
}
