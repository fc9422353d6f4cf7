package ingestion

import (
	"context"
	"io/fs"
	"log/slog"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/quadkv/codec"
	"github.com/poiesic/quadkv/core"
)

// Source is one graph to import. Data wins over Path when both are set.
type Source struct {
	Key    core.Key
	Format string // empty means the importer's default
	Data   []byte
	Path   string
}

// Result reports the outcome of importing one source.
type Result struct {
	Source Source
	Commit *core.Commit
	Err    error
}

// Pipeline imports sources concurrently.
type Pipeline struct {
	pool   *ants.Pool
	proc   processor
	opts   *core.Options
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent imports.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithOptions sets the options every import is run with, for example a
// storage format or an expiry.
func WithOptions(opts *core.Options) Option {
	return func(p *Pipeline) error {
		if err := core.ValidateOptions(opts); err != nil {
			return err
		}
		p.opts = opts
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(importer Importer, opts ...Option) (*Pipeline, error) {
	if importer == nil {
		return nil, ErrImporterRequired
	}

	poolSize := max(runtime.NumCPU()/2, 1)
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		pool:   pool,
		logger: slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	p.proc = &importProcessor{importer: importer, opts: p.opts}
	return p, nil
}

// Ingest imports every source and waits for all of them. Results are in
// input order.
func (p *Pipeline) Ingest(ctx context.Context, sources []Source) []Result {
	results := make([]Result, len(sources))
	for i, src := range sources {
		results[i].Source = src
	}

	// Sources for one key run in a single task so the last one wins.
	var order []string
	groups := make(map[string][]int)
	for i, src := range sources {
		id := strings.Join(src.Key, "\x00")
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], i)
	}

	var wg sync.WaitGroup
	for _, id := range order {
		idx := groups[id]
		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			for _, i := range idx {
				results[i].Commit, results[i].Err = p.proc.process(ctx, sources[i])
				if results[i].Err != nil {
					p.logger.Warn("import failed", "key", sources[i].Key, "path", sources[i].Path, "err", results[i].Err)
				}
			}
		})
		if err != nil {
			wg.Done()
			for _, i := range idx {
				results[i].Err = err
			}
		}
	}
	wg.Wait()

	p.logger.Debug("ingested sources", "count", len(sources))
	return results
}

// IngestDir imports every file under root whose extension names a known
// format. A file at root/a/b.nq is stored at prefix + [a, b]. Files with
// other extensions are skipped.
func (p *Pipeline) IngestDir(ctx context.Context, root string, prefix core.Key) ([]Result, error) {
	sources, err := DirSources(root, prefix)
	if err != nil {
		return nil, err
	}
	return p.Ingest(ctx, sources), nil
}

// DirSources lists the importable files under root as sources.
func DirSources(root string, prefix core.Key) ([]Source, error) {
	var sources []Source
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		format, err := FormatForPath(path)
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = strings.TrimSuffix(rel, filepath.Ext(rel))

		key := append(core.Key{}, prefix...)
		key = append(key, core.ParseKey(filepath.ToSlash(rel))...)
		sources = append(sources, Source{Key: key, Format: format, Path: path})
		return nil
	})
	return sources, err
}

var extensions = map[string]string{
	".nq":     codec.NQuads,
	".nt":     codec.NQuads,
	".jsonld": codec.JSONLD,
	".pq":     codec.PQuads,
	".pquads": codec.PQuads,
	".ttl":    codec.Turtle,
	".trig":   codec.TriG,
}

// FormatForPath infers a format tag from a file extension.
func FormatForPath(path string) (string, error) {
	if tag, ok := extensions[strings.ToLower(filepath.Ext(path))]; ok {
		return tag, nil
	}
	return "", ErrUnknownExtension
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}
