package query

import (
	"context"
	"iter"
	"log/slog"

	"github.com/poiesic/quadkv/core"
	"github.com/poiesic/quadkv/graph"
	"github.com/poiesic/quadkv/sparql"
)

// Executor runs SPARQL operations against graph stores. It is safe for
// concurrent use on distinct stores.
type Executor struct {
	engine *sparql.Engine
	logger *slog.Logger
}

type Option func(*Executor)

// WithLogger sets the executor's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Executor) {
		e.logger = logger
	}
}

// WithEngine replaces the SPARQL engine.
func WithEngine(engine *sparql.Engine) Option {
	return func(e *Executor) {
		e.engine = engine
	}
}

func NewExecutor(opts ...Option) *Executor {
	e := &Executor{logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	if e.engine == nil {
		e.engine = sparql.NewEngine(sparql.WithLogger(e.logger))
	}
	return e
}

// Execute runs text against store. Updates modify store only on success.
// Every engine failure is returned as a *core.QueryError.
func (e *Executor) Execute(ctx context.Context, store *graph.Store, text string) (Result, error) {
	prep, err := e.engine.Query(ctx, text, store)
	if err != nil {
		return nil, &core.QueryError{Query: text, Err: err}
	}

	if prep.Kind() == sparql.KindVoid {
		scratch := store.Clone()
		if _, err := prep.WithDataset(scratch).Execute(ctx); err != nil {
			return nil, &core.QueryError{Query: text, Err: err}
		}
		if err := ctx.Err(); err != nil {
			return nil, &core.QueryError{Query: text, Err: err}
		}
		store.Replace(scratch)
		e.logger.Debug("update applied", "quads", store.Len())
		return &VoidResult{}, nil
	}

	payload, err := prep.Execute(ctx)
	if err != nil {
		return nil, &core.QueryError{Query: text, Err: err}
	}
	switch prep.Kind() {
	case sparql.KindBindings:
		return &BindingsResult{
			Vars:     prep.Variables(),
			Bindings: NewStream(toBindings(payload.Bindings)),
		}, nil
	case sparql.KindBoolean:
		return &BooleanResult{Value: payload.Boolean}, nil
	default:
		return &QuadsResult{Quads: NewStream(payload.Quads)}, nil
	}
}

func toBindings(seq iter.Seq[sparql.Solution]) iter.Seq[Binding] {
	return func(yield func(Binding) bool) {
		for sol := range seq {
			if !yield(Binding(sol)) {
				return
			}
		}
	}
}
