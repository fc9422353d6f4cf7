package codec

import (
	"fmt"
	"io"

	"github.com/cayleygraph/quad"
	rdf "github.com/geoknoesis/rdf-go/rdf"
	"github.com/poiesic/quadkv/graph"
)

// rdfReader adapts a geoknoesis rdf-go statement reader to cayley quads.
type rdfReader struct {
	r   rdf.Reader
	err error
}

func newRDFReader(format rdf.Format) func(io.Reader) quadReader {
	return func(r io.Reader) quadReader {
		rr, err := rdf.NewReader(r, format)
		return &rdfReader{r: rr, err: err}
	}
}

func (r *rdfReader) ReadQuad() (quad.Quad, error) {
	if r.err != nil {
		return quad.Quad{}, r.err
	}
	st, err := r.r.Next()
	if err != nil {
		return quad.Quad{}, err
	}

	s, err := fromRDFTerm(st.S)
	if err != nil {
		return quad.Quad{}, err
	}
	o, err := fromRDFTerm(st.O)
	if err != nil {
		return quad.Quad{}, err
	}
	var label quad.Value
	if st.G != nil {
		if label, err = fromRDFTerm(st.G); err != nil {
			return quad.Quad{}, err
		}
	}
	return quad.Quad{Subject: s, Predicate: quad.IRI(st.P.Value), Object: o, Label: label}, nil
}

func (r *rdfReader) Close() error {
	if r.r == nil {
		return nil
	}
	return r.r.Close()
}

func fromRDFTerm(t rdf.Term) (quad.Value, error) {
	switch t := t.(type) {
	case rdf.IRI:
		return quad.IRI(t.Value), nil
	case rdf.BlankNode:
		return quad.BNode(t.ID), nil
	case rdf.Literal:
		switch {
		case t.Lang != "":
			return quad.LangString{Value: quad.String(t.Lexical), Lang: t.Lang}, nil
		case t.Datatype.Value == "":
			return quad.String(t.Lexical), nil
		default:
			return quad.TypedString{Value: quad.String(t.Lexical), Type: quad.IRI(t.Datatype.Value)}, nil
		}
	}
	// Quoted triples have no cayley counterpart.
	return nil, fmt.Errorf("unsupported term %s", t)
}

// rdfWriter adapts a geoknoesis rdf-go statement writer to cayley quads.
type rdfWriter struct {
	w   rdf.Writer
	err error
}

func newRDFWriter(format rdf.Format) func(io.Writer) quadWriter {
	return func(w io.Writer) quadWriter {
		rw, err := rdf.NewWriter(w, format)
		return &rdfWriter{w: rw, err: err}
	}
}

func (w *rdfWriter) WriteQuad(q quad.Quad) error {
	if w.err != nil {
		return w.err
	}
	s, err := toRDFTerm(q.Subject)
	if err != nil {
		return err
	}
	p, ok := q.Predicate.(quad.IRI)
	if !ok {
		return fmt.Errorf("predicate must be an IRI, got %s", q.Predicate)
	}
	o, err := toRDFTerm(q.Object)
	if err != nil {
		return err
	}
	var g rdf.Term
	if q.Label != nil {
		if g, err = toRDFTerm(q.Label); err != nil {
			return err
		}
	}
	return w.w.Write(rdf.Statement{S: s, P: rdf.IRI{Value: string(p)}, O: o, G: g})
}

func (w *rdfWriter) Close() error {
	if w.w == nil {
		return w.err
	}
	return w.w.Close()
}

func toRDFTerm(v quad.Value) (rdf.Term, error) {
	switch v := graph.Canonical(v).(type) {
	case quad.IRI:
		return rdf.IRI{Value: string(v)}, nil
	case quad.BNode:
		return rdf.BlankNode{ID: string(v)}, nil
	case quad.String:
		return rdf.Literal{Lexical: string(v)}, nil
	case quad.LangString:
		return rdf.Literal{Lexical: string(v.Value), Lang: v.Lang}, nil
	case quad.TypedString:
		return rdf.Literal{Lexical: string(v.Value), Datatype: rdf.IRI{Value: string(v.Type)}}, nil
	}
	return nil, fmt.Errorf("unsupported value %T", v)
}
