// Package server exposes a Database over HTTP.
//
// Routes:
//
//	GET    /health          liveness check
//	POST   /sparql/{key...} run a query or update against the graph at key
//	GET    /graphs/{key...} export the graph at key
//	PUT    /graphs/{key...} replace the graph at key with the request body
//	DELETE /graphs/{key...} delete the graph at key
//	GET    /keys            list stored keys, filtered by ?prefix=
//
// Query and update results use the SPARQL 1.1 JSON results format for
// bindings and booleans and an RDF serialization for graphs.
package server
