package sparql

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"iter"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/cayleygraph/quad"

	"github.com/poiesic/quadkv/graph"
)

// Solution maps variable names, without the leading "?", to bound terms.
type Solution map[string]quad.Value

type evaluator struct {
	ctx context.Context
	ds  Dataset
}

// evalGroup extends every seed solution through the elements of g. The
// graph node selects the active graph: zero for the default graph, a
// constant for one named graph, a variable to range over named graphs.
func (ev *evaluator) evalGroup(g *groupPattern, seeds []Solution, active node) ([]Solution, error) {
	sols := seeds
	var err error
	for _, el := range g.elements {
		if err := ev.ctx.Err(); err != nil {
			return nil, err
		}
		switch el := el.(type) {
		case bgpElem:
			for _, tp := range el.patterns {
				if sols, err = ev.matchPattern(sols, tp, active); err != nil {
					return nil, err
				}
			}
		case subGroupElem:
			if sols, err = ev.evalGroup(el.group, sols, active); err != nil {
				return nil, err
			}
		case optionalElem:
			var out []Solution
			for _, sol := range sols {
				ext, err := ev.evalGroup(el.group, []Solution{sol}, active)
				if err != nil {
					return nil, err
				}
				if len(ext) == 0 {
					out = append(out, sol)
				} else {
					out = append(out, ext...)
				}
			}
			sols = out
		case unionElem:
			var out []Solution
			for _, branch := range el.branches {
				ext, err := ev.evalGroup(branch, sols, active)
				if err != nil {
					return nil, err
				}
				out = append(out, ext...)
			}
			sols = out
		case minusElem:
			right, err := ev.evalGroup(el.group, []Solution{{}}, active)
			if err != nil {
				return nil, err
			}
			sols = slices.DeleteFunc(sols, func(sol Solution) bool {
				return slices.ContainsFunc(right, func(r Solution) bool {
					return sharesVariable(sol, r) && compatible(sol, r)
				})
			})
		case graphElem:
			if sols, err = ev.evalGroup(el.group, sols, el.graph); err != nil {
				return nil, err
			}
		case bindElem:
			out := make([]Solution, 0, len(sols))
			for _, sol := range sols {
				v, err := el.expr.eval(sol)
				if err == nil {
					sol = maps.Clone(sol)
					sol[el.name] = v
				}
				out = append(out, sol)
			}
			sols = out
		case valuesElem:
			sols = joinValues(sols, el)
		}
	}

	if len(g.filters) == 0 {
		return sols, nil
	}
	return slices.DeleteFunc(sols, func(sol Solution) bool {
		for _, f := range g.filters {
			if ok, err := evalBool(f, sol); err != nil || !ok {
				return true
			}
		}
		return false
	}), nil
}

func (ev *evaluator) matchPattern(sols []Solution, tp triplePattern, active node) ([]Solution, error) {
	var out []Solution
	for _, sol := range sols {
		if err := ev.ctx.Err(); err != nil {
			return nil, err
		}
		pat := graph.Pattern{
			Subject:   bound(tp.s, sol),
			Predicate: bound(tp.p, sol),
			Object:    bound(tp.o, sol),
		}
		switch {
		case active.isZero():
			pat.Scope = graph.ScopeDefault
		default:
			pat.Label = bound(active, sol)
			pat.Scope = graph.ScopeNamed
		}
		for q := range ev.ds.Match(pat) {
			ext := maps.Clone(sol)
			if bindNode(ext, tp.s, q.Subject) && bindNode(ext, tp.p, q.Predicate) &&
				bindNode(ext, tp.o, q.Object) && bindNode(ext, active, q.Label) {
				out = append(out, ext)
			}
		}
	}
	return out, nil
}

// bound returns the term n denotes under sol, or nil for an unbound
// variable.
func bound(n node, sol Solution) quad.Value {
	if n.isVar() {
		return sol[n.name]
	}
	return n.value
}

func bindNode(sol Solution, n node, v quad.Value) bool {
	if !n.isVar() {
		return true
	}
	if cur, ok := sol[n.name]; ok {
		return cur == v
	}
	sol[n.name] = v
	return true
}

func compatible(a, b Solution) bool {
	for k, av := range a {
		if bv, ok := b[k]; ok && graph.Canonical(av) != graph.Canonical(bv) {
			return false
		}
	}
	return true
}

func sharesVariable(a, b Solution) bool {
	for k := range a {
		if _, ok := b[k]; ok {
			return true
		}
	}
	return false
}

func joinValues(sols []Solution, el valuesElem) []Solution {
	var out []Solution
	for _, sol := range sols {
		for _, row := range el.rows {
			merged := maps.Clone(sol)
			ok := true
			for i, name := range el.names {
				v := row[i]
				if v == nil {
					continue
				}
				if cur, has := merged[name]; has {
					if graph.Canonical(cur) != graph.Canonical(v) {
						ok = false
						break
					}
					continue
				}
				merged[name] = v
			}
			if ok {
				out = append(out, merged)
			}
		}
	}
	return out
}

// solutions evaluates the WHERE clause and applies ORDER BY.
func (ev *evaluator) solutions(q *queryAST) ([]Solution, error) {
	if q.where == nil {
		return []Solution{{}}, nil
	}
	sols, err := ev.evalGroup(q.where, []Solution{{}}, node{})
	if err != nil {
		return nil, err
	}
	if len(q.orderBy) > 0 {
		slices.SortStableFunc(sols, func(a, b Solution) int {
			for _, cond := range q.orderBy {
				av, _ := cond.expr.eval(a)
				bv, _ := cond.expr.eval(b)
				c := termOrder(av, bv)
				if cond.desc {
					c = -c
				}
				if c != 0 {
					return c
				}
			}
			return 0
		})
	}
	return sols, nil
}

// termOrder is the ORDER BY ordering: unbound, blank nodes, IRIs, then
// literals.
func termOrder(a, b quad.Value) int {
	ra, rb := termRank(a), termRank(b)
	if ra != rb {
		return ra - rb
	}
	switch ra {
	case 0:
		return 0
	case 3:
		if c, err := orderedCompare(graph.Canonical(a), graph.Canonical(b)); err == nil {
			return c
		}
		la, _ := lexicalForm(a)
		lb, _ := lexicalForm(b)
		if c := strings.Compare(la, lb); c != 0 {
			return c
		}
	}
	return strings.Compare(a.String(), b.String())
}

func termRank(v quad.Value) int {
	switch v.(type) {
	case nil:
		return 0
	case quad.BNode:
		return 1
	case quad.IRI:
		return 2
	}
	return 3
}

// project applies projection, DISTINCT/REDUCED, OFFSET and LIMIT lazily.
func (ev *evaluator) project(q *queryAST, sols []Solution) iter.Seq[Solution] {
	return func(yield func(Solution) bool) {
		seen := make(map[string]bool)
		skipped, emitted := 0, 0
		for _, sol := range sols {
			if q.limit >= 0 && emitted >= q.limit {
				return
			}
			if ev.ctx.Err() != nil {
				return
			}
			row := make(Solution, len(q.projection))
			for _, proj := range q.projection {
				if proj.expr == nil {
					if v, ok := sol[proj.name]; ok {
						row[proj.name] = v
					}
					continue
				}
				scope := maps.Clone(sol)
				maps.Copy(scope, row)
				if v, err := proj.expr.eval(scope); err == nil {
					row[proj.name] = v
				}
			}
			if q.distinct || q.reduced {
				key := solutionKey(row, q.projection)
				if seen[key] {
					continue
				}
				seen[key] = true
			}
			if skipped < q.offset {
				skipped++
				continue
			}
			emitted++
			if !yield(row) {
				return
			}
		}
	}
}

func solutionKey(sol Solution, projection []projection) string {
	var b strings.Builder
	for _, proj := range projection {
		if v, ok := sol[proj.name]; ok {
			b.WriteString(graph.Canonical(v).String())
		}
		b.WriteByte(0)
	}
	return b.String()
}

// construct instantiates the template once per solution. Blank nodes in
// the template are renamed per solution.
func (ev *evaluator) construct(q *queryAST, sols []Solution) *graph.Store {
	out := graph.NewStore()
	prefix := freshPrefix()
	for i, sol := range sols {
		if q.offset > 0 && i < q.offset {
			continue
		}
		if q.limit >= 0 && i >= q.offset+q.limit {
			break
		}
		fresh := blankRenamer(prefix, i)
		for _, tp := range q.template {
			if qd, ok := instantiate(quadPattern{triplePattern: tp}, sol, nil, fresh); ok {
				out.Add(qd)
			}
		}
	}
	return out
}

// describe returns the quads of the default graph whose subject is one
// of the described resources.
func (ev *evaluator) describe(q *queryAST, sols []Solution) *graph.Store {
	var resources []quad.Value
	add := func(v quad.Value) {
		if v == nil || graph.IsLiteral(v) || slices.Contains(resources, v) {
			return
		}
		resources = append(resources, v)
	}
	targets := q.describe
	if q.star {
		for _, name := range q.vars {
			targets = append(targets, varNode(name))
		}
	}
	for _, n := range targets {
		if !n.isVar() {
			add(n.value)
			continue
		}
		for _, sol := range sols {
			add(sol[n.name])
		}
	}

	out := graph.NewStore()
	for _, r := range resources {
		for qd := range ev.ds.Match(graph.Pattern{Subject: r, Scope: graph.ScopeDefault}) {
			out.Add(qd)
		}
	}
	return out
}

// instantiate builds a quad from a template under sol. It reports false
// when a variable is unbound or the result is not a valid quad.
func instantiate(tp quadPattern, sol Solution, defaultGraph quad.Value, fresh func(quad.BNode) quad.Value) (quad.Quad, bool) {
	term := func(n node) quad.Value {
		if n.isVar() {
			return sol[n.name]
		}
		if b, ok := n.value.(quad.BNode); ok && fresh != nil {
			return fresh(b)
		}
		return n.value
	}
	q := quad.Quad{
		Subject:   term(tp.s),
		Predicate: term(tp.p),
		Object:    term(tp.o),
		Label:     defaultGraph,
	}
	if !tp.g.isZero() {
		q.Label = term(tp.g)
		if q.Label == nil {
			return quad.Quad{}, false
		}
	}
	switch q.Subject.(type) {
	case quad.IRI, quad.BNode:
	default:
		return quad.Quad{}, false
	}
	if _, ok := q.Predicate.(quad.IRI); !ok || q.Object == nil {
		return quad.Quad{}, false
	}
	if q.Label != nil {
		if _, ok := q.Label.(quad.IRI); !ok {
			return quad.Quad{}, false
		}
	}
	return q, true
}

func freshPrefix() string {
	var buf [4]byte
	_, _ = rand.Read(buf[:])
	return "g" + hex.EncodeToString(buf[:])
}

func blankRenamer(prefix string, seq int) func(quad.BNode) quad.Value {
	return func(b quad.BNode) quad.Value {
		return quad.BNode(prefix + "_" + strconv.Itoa(seq) + "_" + string(b))
	}
}
