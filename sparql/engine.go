package sparql

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/cayleygraph/quad"

	"github.com/poiesic/quadkv/graph"
)

// Kind is the result form a prepared operation produces.
type Kind int

const (
	KindBindings Kind = iota
	KindBoolean
	KindQuads
	KindVoid
)

func (k Kind) String() string {
	switch k {
	case KindBindings:
		return "bindings"
	case KindBoolean:
		return "boolean"
	case KindQuads:
		return "quads"
	case KindVoid:
		return "void"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Dataset is the quad source queries read and updates modify.
// *graph.Store implements it.
type Dataset interface {
	Match(p graph.Pattern) iter.Seq[quad.Quad]
	Add(q quad.Quad) bool
	Remove(q quad.Quad) bool
	Clear(label quad.Value, scope graph.GraphScope) int
}

// Payload carries the output of Prepared.Execute. Which field is set
// depends on the Kind.
type Payload struct {
	Bindings iter.Seq[Solution]
	Boolean  bool
	Quads    iter.Seq[quad.Quad]
}

// Engine parses and prepares operations.
type Engine struct {
	logger *slog.Logger
}

type Option func(*Engine)

// WithLogger sets the logger used for debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Prepared is a parsed operation bound to a dataset.
type Prepared struct {
	kind   Kind
	vars   []string
	query  *queryAST
	update *updateAST
	ds     Dataset
}

// Query parses text and binds it to ds without evaluating anything.
func (e *Engine) Query(ctx context.Context, text string, ds Dataset) (*Prepared, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q, u, err := parse(text)
	if err != nil {
		return nil, err
	}
	prep := &Prepared{query: q, update: u, ds: ds}
	switch {
	case u != nil:
		prep.kind = KindVoid
	case q.form == formSelect:
		prep.kind = KindBindings
		for _, proj := range q.projection {
			prep.vars = append(prep.vars, proj.name)
		}
	case q.form == formAsk:
		prep.kind = KindBoolean
	default:
		prep.kind = KindQuads
	}
	e.logger.Debug("prepared sparql operation", "kind", prep.kind)
	return prep, nil
}

func (p *Prepared) Kind() Kind { return p.kind }

// WithDataset returns a copy of p bound to ds.
func (p *Prepared) WithDataset(ds Dataset) *Prepared {
	cp := *p
	cp.ds = ds
	return &cp
}

// Variables returns the projected variable names of a SELECT query.
func (p *Prepared) Variables() []string { return p.vars }

// Execute evaluates the operation. Updates modify the dataset in place
// and may leave it partially modified when they fail.
func (p *Prepared) Execute(ctx context.Context) (Payload, error) {
	ev := &evaluator{ctx: ctx, ds: p.ds}
	if p.update != nil {
		return Payload{}, ev.applyUpdate(p.update)
	}

	sols, err := ev.solutions(p.query)
	if err != nil {
		return Payload{}, err
	}
	switch p.kind {
	case KindBindings:
		return Payload{Bindings: ev.project(p.query, sols)}, nil
	case KindBoolean:
		return Payload{Boolean: len(sols) > 0}, nil
	}
	var out *graph.Store
	if p.query.form == formDescribe {
		out = ev.describe(p.query, sols)
	} else {
		out = ev.construct(p.query, sols)
	}
	return Payload{Quads: out.All()}, nil
}
