package graph

import (
	"encoding/hex"
	"slices"
	"strconv"
	"strings"

	"github.com/cayleygraph/quad"
	"github.com/go-crypt/x/blake2b"
)

// Isomorphic reports whether a and b hold the same quads up to a consistent
// renaming of blank nodes. Formats that relabel blank nodes on read (JSON-LD
// among them) round-trip to an isomorphic store rather than an equal one.
func Isomorphic(a, b *Store) bool {
	if a.Len() != b.Len() {
		return false
	}
	if a.Equal(b) {
		return true
	}

	aQuads, aNodes := blankPart(a)
	bQuads, bNodes := blankPart(b)
	if len(aQuads) != len(bQuads) || len(aNodes) != len(bNodes) {
		return false
	}
	for _, q := range a.quads {
		if !hasBlank(q) && !b.Has(q) {
			return false
		}
	}

	aColors := colorBlanks(aQuads, aNodes)
	bColors := colorBlanks(bQuads, bNodes)

	candidates := make(map[string][]quad.BNode, len(bNodes))
	for _, n := range bNodes {
		c := bColors[n]
		candidates[c] = append(candidates[c], n)
	}
	counts := make(map[string]int, len(aNodes))
	for _, n := range aNodes {
		counts[aColors[n]]++
	}
	for c, n := range counts {
		if len(candidates[c]) != n {
			return false
		}
	}

	mapping := make(map[quad.BNode]quad.BNode, len(aNodes))
	used := make(map[quad.BNode]bool, len(bNodes))
	var assign func(i int) bool
	assign = func(i int) bool {
		if i == len(aNodes) {
			for _, q := range aQuads {
				if !b.Has(renameBlanks(q, mapping)) {
					return false
				}
			}
			return true
		}
		n := aNodes[i]
		for _, cand := range candidates[aColors[n]] {
			if used[cand] {
				continue
			}
			mapping[n], used[cand] = cand, true
			if assign(i + 1) {
				return true
			}
			delete(mapping, n)
			used[cand] = false
		}
		return false
	}
	return assign(0)
}

func quadTerms(q quad.Quad) [4]quad.Value {
	return [4]quad.Value{q.Subject, q.Predicate, q.Object, q.Label}
}

func hasBlank(q quad.Quad) bool {
	for _, t := range quadTerms(q) {
		if _, ok := t.(quad.BNode); ok {
			return true
		}
	}
	return false
}

// blankPart returns the quads mentioning a blank node and the distinct
// blank nodes in first-seen order.
func blankPart(s *Store) ([]quad.Quad, []quad.BNode) {
	var quads []quad.Quad
	var nodes []quad.BNode
	seen := make(map[quad.BNode]bool)
	for _, q := range s.quads {
		if !hasBlank(q) {
			continue
		}
		quads = append(quads, q)
		for _, t := range quadTerms(q) {
			if n, ok := t.(quad.BNode); ok && !seen[n] {
				seen[n] = true
				nodes = append(nodes, n)
			}
		}
	}
	return quads, nodes
}

// colorBlanks assigns each blank node a label-independent color by
// refining over the quads it appears in until the partition is stable.
func colorBlanks(quads []quad.Quad, nodes []quad.BNode) map[quad.BNode]string {
	colors := make(map[quad.BNode]string, len(nodes))
	for _, n := range nodes {
		colors[n] = ""
	}
	distinct := 1
	for range nodes {
		sigs := make(map[quad.BNode][]string, len(nodes))
		for _, q := range quads {
			terms := quadTerms(q)
			for i, t := range terms {
				self, ok := t.(quad.BNode)
				if !ok {
					continue
				}
				var sb strings.Builder
				sb.WriteString(strconv.Itoa(i))
				for j, u := range terms {
					sb.WriteByte('|')
					switch u := u.(type) {
					case nil:
					case quad.BNode:
						if j == i {
							sb.WriteByte('@')
						} else {
							sb.WriteString("_:" + colors[u])
						}
					default:
						sb.WriteString(u.String())
					}
				}
				sigs[self] = append(sigs[self], sb.String())
			}
		}

		next := make(map[quad.BNode]string, len(nodes))
		classes := make(map[string]bool, len(nodes))
		for _, n := range nodes {
			sig := sigs[n]
			slices.Sort(sig)
			c := colorOf(colors[n] + "\n" + strings.Join(sig, "\n"))
			next[n] = c
			classes[c] = true
		}
		colors = next
		if len(classes) == distinct {
			break
		}
		distinct = len(classes)
	}
	return colors
}

func colorOf(s string) string {
	h, _ := blake2b.New(16, nil)
	h.Write([]byte(s))
	return hex.EncodeToString(h.Sum(nil))
}

func renameBlanks(q quad.Quad, mapping map[quad.BNode]quad.BNode) quad.Quad {
	rename := func(v quad.Value) quad.Value {
		if n, ok := v.(quad.BNode); ok {
			return mapping[n]
		}
		return v
	}
	return quad.Quad{
		Subject:   rename(q.Subject),
		Predicate: rename(q.Predicate),
		Object:    rename(q.Object),
		Label:     rename(q.Label),
	}
}
