package search

import (
	"cmp"
	"context"
	"log/slog"
	"runtime"
	"slices"
	"strings"
	"sync"

	"github.com/cayleygraph/quad"
	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/quadkv/codec"
	"github.com/poiesic/quadkv/core"
	"github.com/poiesic/quadkv/graph"
	"github.com/poiesic/quadkv/query"
	"github.com/poiesic/quadkv/sparql"
)

// Database is the subset of *quadkv.Database a Searcher reads from.
type Database interface {
	Keys(ctx context.Context, prefix core.Key) ([]core.Key, error)
	LoadGraph(ctx context.Context, key core.Key, opts *core.Options) (*graph.Store, codec.Format, error)
}

// Hit is one SELECT solution and the graph it came from.
type Hit struct {
	Key     core.Key
	Binding query.Binding
}

// LiteralHit is a quad whose literal object matched a text search.
type LiteralHit struct {
	Key   core.Key
	Quad  quad.Quad
	Score float32
}

// Searcher runs lookups across the graphs under a key prefix.
type Searcher struct {
	db          Database
	engine      *sparql.Engine
	pool        *ants.Pool
	consistency core.Consistency
	logger      *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithPoolSize sets how many graphs are searched at once.
// Default is runtime.NumCPU().
func WithPoolSize(size int) Option {
	return func(s *Searcher) error {
		pool, err := ants.NewPool(max(size, 1))
		if err != nil {
			return err
		}
		if s.pool != nil {
			s.pool.Release()
		}
		s.pool = pool
		return nil
	}
}

// WithConsistency sets the read guarantee used to load graphs.
func WithConsistency(c core.Consistency) Option {
	return func(s *Searcher) error {
		if err := core.ValidateOptions(&core.Options{Consistency: c}); err != nil {
			return err
		}
		s.consistency = c
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(db Database, opts ...Option) (*Searcher, error) {
	if db == nil {
		return nil, ErrDatabaseRequired
	}

	s := &Searcher{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			s.Release()
			return nil, err
		}
	}
	if s.pool == nil {
		pool, err := ants.NewPool(runtime.NumCPU())
		if err != nil {
			return nil, err
		}
		s.pool = pool
	}
	s.engine = sparql.NewEngine(sparql.WithLogger(s.logger))
	return s, nil
}

// Release releases the worker pool.
func (s *Searcher) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}

// Select evaluates a SELECT query against every graph under prefix.
// Hits are grouped by key in key order; each group keeps the query's
// solution order. maxHits <= 0 returns every hit.
func (s *Searcher) Select(ctx context.Context, prefix core.Key, text string, maxHits int) ([]*Hit, error) {
	return s.SelectWithMonitor(ctx, prefix, text, maxHits, nil)
}

// SelectWithMonitor is Select with a monitor receiving progress callbacks.
func (s *Searcher) SelectWithMonitor(ctx context.Context, prefix core.Key, text string, maxHits int, monitor SearchMonitor) ([]*Hit, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(text)

	prep, err := s.engine.Query(ctx, text, nil)
	if err != nil {
		return nil, &core.QueryError{Query: text, Err: err}
	}
	if prep.Kind() != sparql.KindBindings {
		return nil, &core.QueryError{Query: text, Err: ErrNotSelect}
	}

	perKey, err := fanOut(ctx, s, prefix, monitor, func(store *graph.Store) ([]*Hit, error) {
		payload, err := prep.WithDataset(store).Execute(ctx)
		if err != nil {
			return nil, &core.QueryError{Query: text, Err: err}
		}
		var hits []*Hit
		for sol := range payload.Bindings {
			hits = append(hits, &Hit{Binding: query.Binding(sol)})
		}
		return hits, nil
	})
	if err != nil {
		return nil, err
	}

	var hits []*Hit
	for _, r := range perKey {
		for _, h := range r.hits {
			h.Key = r.key
			hits = append(hits, h)
		}
	}
	if maxHits > 0 && len(hits) > maxHits {
		hits = hits[:maxHits]
	}
	monitor.Finish(len(hits))
	return hits, nil
}

// FindLiterals ranks literal objects under prefix by how many of the
// words in text they contain. Stop words are ignored and a verbatim
// match of the whole text scores higher. Returns up to maxHits results,
// best first.
func (s *Searcher) FindLiterals(ctx context.Context, prefix core.Key, text string, maxHits int) ([]*LiteralHit, error) {
	return s.FindLiteralsWithMonitor(ctx, prefix, text, maxHits, nil)
}

// FindLiteralsWithMonitor is FindLiterals with a monitor receiving
// progress callbacks.
func (s *Searcher) FindLiteralsWithMonitor(ctx context.Context, prefix core.Key, text string, maxHits int, monitor SearchMonitor) ([]*LiteralHit, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	monitor.Start(text)

	words := tokenizeAndFilter(text)
	if len(words) == 0 {
		monitor.Finish(0)
		return []*LiteralHit{}, nil
	}
	phrase := strings.ToLower(strings.TrimSpace(text))

	perKey, err := fanOut(ctx, s, prefix, monitor, func(store *graph.Store) ([]*LiteralHit, error) {
		var hits []*LiteralHit
		for q := range store.All() {
			lexical, ok := literalText(q.Object)
			if !ok {
				continue
			}
			if score := matchScore(lexical, words, phrase); score > 0 {
				hits = append(hits, &LiteralHit{Quad: q, Score: score})
			}
		}
		return hits, nil
	})
	if err != nil {
		return nil, err
	}

	var hits []*LiteralHit
	for _, r := range perKey {
		for _, h := range r.hits {
			h.Key = r.key
			hits = append(hits, h)
		}
	}
	slices.SortStableFunc(hits, func(a, b *LiteralHit) int {
		return cmp.Compare(b.Score, a.Score)
	})
	if maxHits > 0 && len(hits) > maxHits {
		hits = hits[:maxHits]
	}
	monitor.Finish(len(hits))
	return hits, nil
}

func literalText(v quad.Value) (string, bool) {
	switch t := v.(type) {
	case quad.String:
		return string(t), true
	case quad.LangString:
		return string(t.Value), true
	case quad.TypedString:
		return string(t.Value), true
	}
	return "", false
}

type keyHits[T any] struct {
	key  core.Key
	hits []T
}

// fanOut loads each graph under prefix on the pool and applies fn to it.
// Results are in key order. Graphs that fail to load are skipped; an
// error from fn, a listing failure or cancellation ends the search.
func fanOut[T any](ctx context.Context, s *Searcher, prefix core.Key, monitor SearchMonitor, fn func(*graph.Store) ([]T, error)) ([]keyHits[T], error) {
	keys, err := s.db.Keys(ctx, prefix)
	if err != nil {
		s.logger.Error("error listing keys", "prefix", prefix, "err", err)
		return nil, err
	}
	monitor.AfterKeyListing(keys)

	results := make([]keyHits[T], len(keys))
	errs := make([]error, len(keys))
	opts := &core.Options{Consistency: s.consistency}

	var wg sync.WaitGroup
	for i, key := range keys {
		results[i].key = key
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			store, _, err := s.db.LoadGraph(ctx, key, opts)
			if err != nil {
				s.logger.Warn("skipping graph", "key", key, "err", err)
				monitor.GraphFailed(key, err)
				return
			}
			hits, err := fn(store)
			if err != nil {
				errs[i] = err
				return
			}
			results[i].hits = hits
			monitor.GraphSearched(key, len(hits))
		})
		if err != nil {
			wg.Done()
			errs[i] = err
		}
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}
