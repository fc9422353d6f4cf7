package badger

import (
	"bytes"
	"fmt"

	"github.com/mus-format/mus-go/ord"
	"github.com/poiesic/quadkv/core"
)

// Key prefix for graph blobs
const graphBlobPrefix = "graph:"

// makeGraphKey generates the storage key for a graph.
// Format: prefix followed by each segment as a length-prefixed string.
// A key prefix therefore encodes to a byte prefix that ends on a segment
// boundary.
func makeGraphKey(key core.Key) []byte {
	size := len(graphBlobPrefix)
	for _, seg := range key {
		size += ord.String.Size(seg)
	}
	buf := make([]byte, size)
	offset := copy(buf, graphBlobPrefix)
	for _, seg := range key {
		offset += ord.String.Marshal(seg, buf[offset:])
	}
	return buf
}

// parseGraphKey reverses makeGraphKey.
func parseGraphKey(raw []byte) (core.Key, error) {
	if !bytes.HasPrefix(raw, []byte(graphBlobPrefix)) {
		return nil, fmt.Errorf("key %q lacks graph prefix", raw)
	}
	rest := raw[len(graphBlobPrefix):]
	var key core.Key
	for len(rest) > 0 {
		seg, n, err := ord.String.Unmarshal(rest)
		if err != nil {
			return nil, fmt.Errorf("decode key segment: %w", err)
		}
		key = append(key, seg)
		rest = rest[n:]
	}
	return key, nil
}
