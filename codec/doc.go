// Package codec converts between serialized graph blobs and graph stores.
//
// Formats come from the cayley quad format registry. The codec adds
// case-insensitive aliases for the common names and MIME types, picks
// N-Quads as the default, and maps failures onto the core error taxonomy:
// unknown tags are core.ErrUnsupportedFormat, malformed bytes are a
// *core.ParseError.
//
// Round-trips are set-equal, not byte-equal: encoding order follows the
// store's iteration order, which is not stable across mutations.
package codec
