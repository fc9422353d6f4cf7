// Package reencode rewrites stored graphs in a different serialization
// format.
//
// Keys are walked in batches under an optional prefix. Each graph is
// decoded in its stored format and written back in the target format,
// keeping its remaining time to live. Graphs already in the target format
// are left untouched. Backend reads and writes are retried with
// exponential backoff and progress is reported to a writer.
package reencode
