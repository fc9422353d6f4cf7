package codec

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/cayleygraph/quad"
	"github.com/piprate/json-gold/ld"
	"github.com/poiesic/quadkv/graph"
)

const ldDefaultGraph = "@default"

// jsonldReader expands a JSON-LD document to RDF up front and replays the
// quads. Blank nodes come back with fresh labels assigned by the processor.
type jsonldReader struct {
	quads []quad.Quad
	err   error
}

func newJSONLDReader(r io.Reader) quadReader {
	var doc any
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return &jsonldReader{err: err}
	}
	out, err := ld.NewJsonLdProcessor().ToRDF(doc, ld.NewJsonLdOptions(""))
	if err != nil {
		return &jsonldReader{err: err}
	}
	ds, ok := out.(*ld.RDFDataset)
	if !ok {
		return &jsonldReader{err: fmt.Errorf("unexpected JSON-LD result %T", out)}
	}

	rd := &jsonldReader{}
	for _, name := range slices.Sorted(maps.Keys(ds.Graphs)) {
		label := graphLabel(name)
		for _, lq := range ds.Graphs[name] {
			q, err := fromLDQuad(lq, label)
			if err != nil {
				return &jsonldReader{err: err}
			}
			rd.quads = append(rd.quads, q)
		}
	}
	return rd
}

func (r *jsonldReader) ReadQuad() (quad.Quad, error) {
	if r.err != nil {
		return quad.Quad{}, r.err
	}
	if len(r.quads) == 0 {
		return quad.Quad{}, io.EOF
	}
	q := r.quads[0]
	r.quads = r.quads[1:]
	return q, nil
}

func (r *jsonldReader) Close() error {
	r.quads = nil
	return nil
}

func graphLabel(name string) quad.Value {
	switch {
	case name == ldDefaultGraph:
		return nil
	case strings.HasPrefix(name, "_:"):
		return quad.BNode(name[2:])
	default:
		return quad.IRI(name)
	}
}

func fromLDQuad(lq *ld.Quad, label quad.Value) (quad.Quad, error) {
	s, err := fromLDNode(lq.Subject)
	if err != nil {
		return quad.Quad{}, err
	}
	p, err := fromLDNode(lq.Predicate)
	if err != nil {
		return quad.Quad{}, err
	}
	o, err := fromLDNode(lq.Object)
	if err != nil {
		return quad.Quad{}, err
	}
	return quad.Quad{Subject: s, Predicate: p, Object: o, Label: label}, nil
}

func fromLDNode(n ld.Node) (quad.Value, error) {
	switch n := n.(type) {
	case ld.IRI:
		return quad.IRI(n.Value), nil
	case ld.BlankNode:
		return quad.BNode(strings.TrimPrefix(n.Attribute, "_:")), nil
	case ld.Literal:
		switch {
		case n.Language != "":
			return quad.LangString{Value: quad.String(n.Value), Lang: n.Language}, nil
		case n.Datatype == "" || n.Datatype == ld.XSDString:
			return quad.String(n.Value), nil
		default:
			return quad.TypedString{Value: quad.String(n.Value), Type: quad.IRI(n.Datatype)}, nil
		}
	}
	return nil, fmt.Errorf("unexpected JSON-LD node %T", n)
}

// jsonldWriter collects quads into an RDF dataset and serializes it as
// expanded JSON-LD on Close. Blank nodes keep their "_:" labels.
type jsonldWriter struct {
	w  io.Writer
	ds *ld.RDFDataset
}

func newJSONLDWriter(w io.Writer) quadWriter {
	return &jsonldWriter{w: w, ds: ld.NewRDFDataset()}
}

func (w *jsonldWriter) WriteQuad(q quad.Quad) error {
	s, err := toLDNode(q.Subject)
	if err != nil {
		return err
	}
	if _, ok := s.(ld.Literal); ok {
		return fmt.Errorf("JSON-LD subject must be an IRI or blank node, got %s", q.Subject)
	}
	p, err := toLDNode(q.Predicate)
	if err != nil {
		return err
	}
	if _, ok := p.(ld.IRI); !ok {
		return fmt.Errorf("JSON-LD predicate must be an IRI, got %s", q.Predicate)
	}
	o, err := toLDNode(q.Object)
	if err != nil {
		return err
	}

	name := ldDefaultGraph
	switch l := q.Label.(type) {
	case nil:
	case quad.IRI:
		name = string(l)
	case quad.BNode:
		name = "_:" + string(l)
	default:
		return fmt.Errorf("JSON-LD graph name must be an IRI or blank node, got %s", q.Label)
	}
	w.ds.Graphs[name] = append(w.ds.Graphs[name], ld.NewQuad(s, p, o, name))
	return nil
}

func (w *jsonldWriter) Close() error {
	doc, err := ld.NewJsonLdApi().FromRDF(w.ds, ld.NewJsonLdOptions(""))
	if err != nil {
		return err
	}
	return json.NewEncoder(w.w).Encode(doc)
}

func toLDNode(v quad.Value) (ld.Node, error) {
	switch v := graph.Canonical(v).(type) {
	case quad.IRI:
		return ld.NewIRI(string(v)), nil
	case quad.BNode:
		return ld.NewBlankNode("_:" + string(v)), nil
	case quad.String:
		return ld.NewLiteral(string(v), "", ""), nil
	case quad.LangString:
		return ld.NewLiteral(string(v.Value), ld.RDFLangString, v.Lang), nil
	case quad.TypedString:
		return ld.NewLiteral(string(v.Value), string(v.Type), ""), nil
	}
	return nil, fmt.Errorf("cannot express %T in JSON-LD", v)
}
