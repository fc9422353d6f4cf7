package core

import (
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Key identifies one named graph's storage slot.
// Segments are ordered; two keys are equal when all segments are equal.
type Key []string

// String renders the key as slash-joined segments for logs and errors.
func (k Key) String() string {
	return strings.Join(k, "/")
}

// HasPrefix reports whether every segment of prefix leads k.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i, seg := range prefix {
		if k[i] != seg {
			return false
		}
	}
	return true
}

// ParseKey splits a slash-separated path into a Key, dropping empty segments.
func ParseKey(path string) Key {
	var key Key
	for _, seg := range strings.Split(path, "/") {
		if seg != "" {
			key = append(key, seg)
		}
	}
	return key
}

// Consistency is the read guarantee requested from the backend.
type Consistency int

const (
	// ConsistencyStrong reads the latest committed value.
	ConsistencyStrong Consistency = iota
	// ConsistencyEventual allows a possibly stale value.
	ConsistencyEventual
)

func (c Consistency) String() string {
	switch c {
	case ConsistencyStrong:
		return "strong"
	case ConsistencyEventual:
		return "eventual"
	default:
		return "unknown"
	}
}

// ParseConsistency maps "strong" or "eventual" (case-insensitive) to a
// Consistency. An empty string is strong.
func ParseConsistency(s string) (Consistency, error) {
	switch strings.ToLower(s) {
	case "", "strong":
		return ConsistencyStrong, nil
	case "eventual":
		return ConsistencyEventual, nil
	default:
		return ConsistencyStrong, ErrInvalidConsistency
	}
}

// Blob is a serialized graph together with its out-of-band format tag.
type Blob struct {
	Format    string    // Serialization format tag (e.g. "application/n-quads")
	Data      []byte    // Serialized graph
	Digest    string    // Hex BLAKE2b-256 of Data
	ExpiresAt time.Time // Zero when the blob never expires
}

// NewBlob builds a Blob and computes its digest.
func NewBlob(format string, data []byte) *Blob {
	return &Blob{
		Format: format,
		Data:   data,
		Digest: DigestOf(data),
	}
}

// Empty reports whether the blob carries no graph data.
func (b *Blob) Empty() bool {
	return b == nil || len(b.Data) == 0
}

// DigestOf returns the hex BLAKE2b-256 digest of data.
func DigestOf(data []byte) string {
	h, _ := blake2b.New(32, nil)
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Options configure one load–query–persist cycle.
type Options struct {
	// Consistency is the read consistency level passed to the backend.
	Consistency Consistency

	// ExpireIn is the TTL applied when the graph is written back.
	// Zero means the blob never expires.
	ExpireIn time.Duration

	// Format is the serialization format used to encode the graph on write,
	// and to decode the stored blob when it carries no format tag of its own.
	Format string

	// SkipReadOnlyWrite skips the write-back after queries that cannot
	// mutate the graph. The stored blob's TTL is then not refreshed.
	SkipReadOnlyWrite bool
}

// Commit acknowledges a successful write.
type Commit struct {
	Key       Key
	Digest    string
	Size      int
	ExpiresAt time.Time
}
