// Package query executes SPARQL text against a graph store and classifies
// the outcome into a Result.
//
// Read queries evaluate against the store directly. Updates evaluate
// against a clone that replaces the store contents only when the whole
// update succeeds, so a failed or canceled update leaves the store as it
// was.
package query
