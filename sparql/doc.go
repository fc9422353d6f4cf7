// Package sparql parses and evaluates a subset of SPARQL 1.1 Query and
// Update against an in-memory quad dataset.
//
// Supported query forms are SELECT, ASK, CONSTRUCT and DESCRIBE. Group
// patterns support basic graph patterns, FILTER, OPTIONAL, UNION, MINUS,
// GRAPH, BIND, VALUES and nested groups, with ORDER BY, LIMIT and OFFSET
// modifiers. Aggregates, property paths and subqueries are not supported
// and are reported as syntax errors.
//
// Supported update operations are INSERT DATA, DELETE DATA, DELETE WHERE,
// DELETE/INSERT ... WHERE (with optional WITH), CLEAR, DROP and CREATE.
// Operations separated by ";" run in order against the same dataset.
//
// Patterns outside GRAPH match the default graph (quads with no label).
// GRAPH <iri> matches one named graph and GRAPH ?g ranges over all named
// graphs.
//
// An Engine holds no state between calls and may be shared.
package sparql
