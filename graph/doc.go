// Package graph provides the in-memory quad set a query cycle operates on.
//
// A Store holds cayley quad.Quad values with set semantics: adding a quad
// that is already present is a no-op, and membership is structural equality
// over all four components. A nil Label is the default graph.
//
// Terms are canonicalized on the way in. Native values produced by some
// readers (quad.Int, quad.Float, quad.Bool, quad.Time) are stored as
// quad.TypedString literals with the matching XSD datatype, so the same
// literal compares equal regardless of which format it was decoded from.
//
// A Store is not safe for concurrent mutation. One Store belongs to one
// query cycle.
package graph
