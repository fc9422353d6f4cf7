// Package ingestion bulk-loads serialized graphs into a database.
//
// The Pipeline type imports many sources at once:
//   - Sources for distinct keys are imported concurrently on a worker pool
//   - Sources that share a key are imported one after another in input order
//   - Files under a directory are mapped to keys by their relative path
//
// Each source is decoded and stored with a single import, so a malformed
// source leaves its key unchanged. Failures are reported per source and
// never stop the rest of the batch.
package ingestion
