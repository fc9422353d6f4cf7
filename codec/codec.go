package codec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/cayleygraph/quad"
	"github.com/poiesic/quadkv/core"
	"github.com/poiesic/quadkv/graph"
)

// Codec encodes and decodes graph stores.
// A Codec is stateless and safe for concurrent use.
type Codec struct {
	defaultFormat *Format
	logger        *slog.Logger
}

// Option configures a Codec.
type Option func(*Codec) error

// WithDefaultFormat sets the format used when no other format applies.
func WithDefaultFormat(tag string) Option {
	return func(c *Codec) error {
		f, ok := lookup(tag)
		if !ok {
			return fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, tag)
		}
		c.defaultFormat = f
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Codec) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// New creates a codec defaulting to N-Quads.
func New(opts ...Option) (*Codec, error) {
	def, ok := lookup(DefaultFormat)
	if !ok {
		return nil, fmt.Errorf("%w: default %q is not registered", core.ErrUnsupportedFormat, DefaultFormat)
	}
	c := &Codec{
		defaultFormat: def,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Default returns the codec's default format.
func (c *Codec) Default() Format {
	return *c.defaultFormat
}

// Resolve maps a format tag to a supported format. An empty tag resolves to
// the default format.
func (c *Codec) Resolve(tag string) (Format, error) {
	if tag == "" {
		return *c.defaultFormat, nil
	}
	f, ok := lookup(tag)
	if !ok {
		return Format{}, fmt.Errorf("%w: %q", core.ErrUnsupportedFormat, tag)
	}
	return *f, nil
}

// Supported reports whether tag names a supported format.
func (c *Codec) Supported(tag string) bool {
	_, err := c.Resolve(tag)
	return err == nil
}

// Decode parses blob into a new store.
//
// The format is taken from the blob's own tag, then hint, then the default.
// A nil or empty blob decodes to an empty store. On failure no store is
// returned.
func (c *Codec) Decode(blob *core.Blob, hint string) (*graph.Store, Format, error) {
	tag := hint
	if blob != nil && blob.Format != "" {
		tag = blob.Format
	}
	f, err := c.Resolve(tag)
	if err != nil {
		return nil, Format{}, err
	}

	store := graph.NewStore()
	if blob.Empty() {
		return store, f, nil
	}

	r := f.impl.reader(bytes.NewReader(blob.Data))
	defer r.Close()

	n := 0
	_, err = store.Import(func(yield func(quad.Quad, error) bool) {
		for {
			q, err := r.ReadQuad()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(quad.Quad{}, err)
				return
			}
			n++
			if !yield(q, nil) {
				return
			}
		}
	})
	if err != nil {
		return nil, Format{}, &core.ParseError{
			Format:   f.Name,
			Position: fmt.Sprintf("quad %d", n+1),
			Err:      err,
		}
	}

	c.logger.Debug("decoded graph", "format", f.Name, "quads", store.Len(), "bytes", len(blob.Data))
	return store, f, nil
}

// Encode serializes store with the format named by tag, or the default
// when tag is empty. A store holding named graphs cannot be encoded in a
// triples-only format such as Turtle.
func (c *Codec) Encode(store *graph.Store, tag string) (*core.Blob, error) {
	f, err := c.Resolve(tag)
	if err != nil {
		return nil, err
	}
	if !f.Graphs {
		for q := range store.Match(graph.Pattern{Scope: graph.ScopeNamed}) {
			return nil, fmt.Errorf("%w: %s cannot hold named graph %s", core.ErrUnsupportedFormat, f.Name, q.Label)
		}
	}

	var buf bytes.Buffer
	w := f.impl.writer(&buf)
	for q := range store.All() {
		if err := w.WriteQuad(q); err != nil {
			w.Close()
			return nil, fmt.Errorf("encode %s: %w", f.Name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("encode %s: %w", f.Name, err)
	}

	c.logger.Debug("encoded graph", "format", f.Name, "quads", store.Len(), "bytes", buf.Len())
	return core.NewBlob(f.Tag, buf.Bytes()), nil
}

// Formats lists the canonical supported formats.
func (c *Codec) Formats() []Format {
	var out []Format
	for _, f := range registry {
		out = append(out, *f)
	}
	return out
}
