package codec

import (
	"io"
	"strings"

	"github.com/cayleygraph/quad"
	"github.com/cayleygraph/quad/nquads"
	"github.com/cayleygraph/quad/pquads"
	rdf "github.com/geoknoesis/rdf-go/rdf"
)

// Canonical format tags written alongside encoded blobs.
const (
	NQuads = "application/n-quads"
	JSONLD = "application/ld+json"
	PQuads = "application/x-protobuf"
	Turtle = "text/turtle"
	TriG   = "application/trig"
)

// DefaultFormat is used when neither the blob nor the caller names a format.
const DefaultFormat = NQuads

// Format describes one supported serialization.
type Format struct {
	Name   string // short name, reported in parse errors
	Tag    string // canonical tag stored with blobs
	Binary bool
	// Graphs reports whether the format can carry named graphs.
	Graphs bool

	impl *formatImpl
}

type quadReader interface {
	ReadQuad() (quad.Quad, error)
	Close() error
}

type quadWriter interface {
	WriteQuad(quad.Quad) error
	Close() error
}

type formatImpl struct {
	reader func(io.Reader) quadReader
	writer func(io.Writer) quadWriter
}

var registry = []*Format{
	{
		Name: "nquads", Tag: NQuads, Graphs: true,
		impl: &formatImpl{
			reader: func(r io.Reader) quadReader { return nquads.NewReader(r, nquads.DecodeRaw) },
			writer: func(w io.Writer) quadWriter { return nquads.NewWriter(w) },
		},
	},
	{
		Name: "jsonld", Tag: JSONLD, Graphs: true,
		impl: &formatImpl{reader: newJSONLDReader, writer: newJSONLDWriter},
	},
	{
		Name: "pquads", Tag: PQuads, Binary: true, Graphs: true,
		impl: &formatImpl{
			reader: func(r io.Reader) quadReader { return pquads.NewReader(r, pquads.DefaultMaxSize) },
			writer: func(w io.Writer) quadWriter { return pquads.NewWriter(w, nil) },
		},
	},
	{
		Name: "turtle", Tag: Turtle,
		impl: &formatImpl{reader: newRDFReader(rdf.FormatTurtle), writer: newRDFWriter(rdf.FormatTurtle)},
	},
	{
		Name: "trig", Tag: TriG, Graphs: true,
		impl: &formatImpl{reader: newRDFReader(rdf.FormatTriG), writer: newRDFWriter(rdf.FormatTriG)},
	},
}

var aliases = map[string]string{
	"nquads":                 NQuads,
	"n-quads":                NQuads,
	"application/n-quads":    NQuads,
	"ntriples":               NQuads,
	"n-triples":              NQuads,
	"application/n-triples":  NQuads,
	"text/plain":             NQuads,
	"jsonld":                 JSONLD,
	"json-ld":                JSONLD,
	"application/ld+json":    JSONLD,
	"pquads":                 PQuads,
	"application/x-protobuf": PQuads,
	"turtle":                 Turtle,
	"ttl":                    Turtle,
	"text/turtle":            Turtle,
	"application/x-turtle":   Turtle,
	"trig":                   TriG,
	"application/trig":       TriG,
	"application/x-trig":     TriG,
}

// lookup resolves tag to a registered format.
func lookup(tag string) (*Format, bool) {
	norm := strings.ToLower(strings.TrimSpace(tag))
	// Drop MIME parameters such as "; charset=utf-8".
	if i := strings.IndexByte(norm, ';'); i >= 0 {
		norm = strings.TrimSpace(norm[:i])
	}

	canonical, ok := aliases[norm]
	if !ok {
		return nil, false
	}
	for _, f := range registry {
		if f.Tag == canonical {
			return f, true
		}
	}
	return nil, false
}
