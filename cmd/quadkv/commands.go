package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	"github.com/cayleygraph/quad"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/quadkv"
	"github.com/poiesic/quadkv/core"
	"github.com/poiesic/quadkv/graph"
	"github.com/poiesic/quadkv/ingestion"
	"github.com/poiesic/quadkv/query"
	"github.com/poiesic/quadkv/reencode"
	"github.com/poiesic/quadkv/server"
)

func openDatabase(c *cli.Context) (*quadkv.Database, error) {
	cfg := configFrom(c)
	dbPath := stringSetting(c, "db", cfg.DB)
	if dbPath == "" {
		return nil, errors.New("database path is required (--db or config file)")
	}

	opts := []quadkv.Option{
		quadkv.WithDefaultFormat(stringSetting(c, "default-format", cfg.DefaultFormat)),
		quadkv.WithLogger(slog.Default()),
	}
	if size := intSetting(c, "pool-size", cfg.PoolSize); size > 0 {
		opts = append(opts, quadkv.WithPoolSize(size))
	}

	db, err := quadkv.Open(dbPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

func cycleOptions(c *cli.Context) (*core.Options, error) {
	consistency, err := core.ParseConsistency(c.String("consistency"))
	if err != nil {
		return nil, err
	}
	return &core.Options{
		Consistency:       consistency,
		ExpireIn:          c.Duration("expire-in"),
		Format:            c.String("format"),
		SkipReadOnlyWrite: c.Bool("skip-read-only-write"),
	}, nil
}

func queryText(c *cli.Context) (string, error) {
	if q := c.String("query"); q != "" {
		return q, nil
	}
	if path := c.String("file"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read query: %w", err)
		}
		return string(data), nil
	}
	if c.Args().Len() > 0 {
		return strings.Join(c.Args().Slice(), " "), nil
	}
	return "", errors.New("no query given (--query, --file or arguments)")
}

func queryCommand(c *cli.Context) error {
	text, err := queryText(c)
	if err != nil {
		return err
	}
	opts, err := cycleOptions(c)
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	key := core.ParseKey(c.String("key"))
	res, err := db.Run(c.Context, key, text, opts)
	if err != nil {
		return err
	}

	w := c.App.Writer
	switch res := res.(type) {
	case *query.BindingsResult:
		return writeBindings(w, res)
	case *query.BooleanResult:
		_, err := fmt.Fprintln(w, res.Value)
		return err
	case *query.QuadsResult:
		store := graph.NewStore()
		store.AddAll(res.Quads.Collect()...)
		blob, err := db.Codec().Encode(store, c.String("output-format"))
		if err != nil {
			return err
		}
		_, err = w.Write(blob.Data)
		return err
	case *query.VoidResult:
		slog.Info("update applied", "key", key.String())
	}
	return nil
}

// writeBindings prints a tab-separated table with a header row. Terms use
// N-Quads syntax; unbound variables are empty cells.
func writeBindings(w io.Writer, res *query.BindingsResult) error {
	if _, err := fmt.Fprintln(w, strings.Join(res.Vars, "\t")); err != nil {
		return err
	}
	cells := make([]string, len(res.Vars))
	for b := range res.Bindings.All() {
		for i, name := range res.Vars {
			cells[i] = termString(b[name])
		}
		if _, err := fmt.Fprintln(w, strings.Join(cells, "\t")); err != nil {
			return err
		}
	}
	return nil
}

func termString(v quad.Value) string {
	if v == nil {
		return ""
	}
	return v.String()
}

func importCommand(c *cli.Context) error {
	file, dir := c.String("file"), c.String("dir")
	if (file == "") == (dir == "") {
		return errors.New("exactly one of --file or --dir is required")
	}
	if file != "" && c.String("key") == "" {
		return errors.New("--key is required with --file")
	}

	opts := &core.Options{
		ExpireIn: c.Duration("expire-in"),
		Format:   c.String("store-format"),
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	pipeline, err := db.NewIngestionPipeline(ingestion.WithOptions(opts))
	if err != nil {
		return err
	}
	defer pipeline.Release()

	var sources []ingestion.Source
	if file != "" {
		format := c.String("format")
		if format == "" {
			format, _ = ingestion.FormatForPath(file)
		}
		sources = []ingestion.Source{{Key: core.ParseKey(c.String("key")), Format: format, Path: file}}
	} else {
		sources, err = ingestion.DirSources(dir, core.ParseKey(c.String("prefix")))
		if err != nil {
			return fmt.Errorf("failed to scan %s: %w", dir, err)
		}
	}

	failed := 0
	for _, r := range pipeline.Ingest(c.Context, sources) {
		if r.Err != nil {
			failed++
			fmt.Fprintf(c.App.ErrWriter, "%s: %v\n", r.Source.Key, r.Err)
			continue
		}
		fmt.Fprintf(c.App.Writer, "%s\t%d bytes\t%s\n", r.Commit.Key, r.Commit.Size, r.Commit.Digest)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d imports failed", failed, len(sources))
	}
	return nil
}

func exportCommand(c *cli.Context) error {
	consistency, err := core.ParseConsistency(c.String("consistency"))
	if err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	blob, err := db.ExportGraph(c.Context, core.ParseKey(c.String("key")), c.String("format"), consistency)
	if err != nil {
		return err
	}

	if path := c.String("output"); path != "" {
		return os.WriteFile(path, blob.Data, 0o644)
	}
	_, err = c.App.Writer.Write(blob.Data)
	return err
}

func deleteCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	return db.DeleteGraph(c.Context, core.ParseKey(c.String("key")))
}

func keysCommand(c *cli.Context) error {
	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	keys, err := db.Keys(c.Context, core.ParseKey(c.String("prefix")))
	if err != nil {
		return err
	}
	for _, k := range keys {
		fmt.Fprintln(c.App.Writer, k.String())
	}
	return nil
}

func serveCommand(c *cli.Context) error {
	cfg := configFrom(c).Server

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	origins := cfg.CORSOrigins
	if c.IsSet("cors-origin") {
		origins = c.StringSlice("cors-origin")
	}
	srv, err := server.New(db, server.Config{
		ListenAddr:   stringSetting(c, "listen", cfg.Listen),
		CORSOrigins:  origins,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}, server.WithLogger(slog.Default()))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return srv.Start(ctx)
}

func reencodeCommand(c *cli.Context) error {
	cfg := &reencode.Config{
		Format:         c.String("format"),
		Prefix:         core.ParseKey(c.String("prefix")),
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	reencoder, err := db.NewReencoder(cfg, c.App.ErrWriter)
	if err != nil {
		return err
	}

	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", stringSetting(c, "db", configFrom(c).DB))
	fmt.Fprintf(c.App.ErrWriter, "Target format: %s\n", reencoder.Target().Tag)
	fmt.Fprintln(c.App.ErrWriter)

	if _, err := reencoder.Run(c.Context); err != nil {
		return fmt.Errorf("reencoding failed: %w", err)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	selectText, text := c.String("select"), c.String("text")
	if (selectText == "") == (text == "") {
		return errors.New("exactly one of --select or --text is required")
	}

	db, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	searcher, err := db.NewSearcher()
	if err != nil {
		return err
	}
	defer searcher.Release()

	ctx := c.Context
	prefix := core.ParseKey(c.String("prefix"))
	w := c.App.Writer

	if selectText != "" {
		hits, err := searcher.Select(ctx, prefix, selectText, c.Int("max-hits"))
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Found %d hits\n", len(hits))
		for _, hit := range hits {
			pairs := make([]string, 0, len(hit.Binding))
			for name, v := range hit.Binding {
				pairs = append(pairs, "?"+name+"="+termString(v))
			}
			slices.Sort(pairs)
			fmt.Fprintf(w, "%s\t%s\n", hit.Key, strings.Join(pairs, " "))
		}
		return nil
	}

	hits, err := searcher.FindLiterals(ctx, prefix, text, c.Int("max-hits"))
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Found %d hits\n", len(hits))
	for i, hit := range hits {
		fmt.Fprintf(w, "%d: %s %s %s [%0.3f] (%s)\n", i, hit.Quad.Subject, hit.Quad.Predicate, hit.Quad.Object, hit.Score, hit.Key)
	}
	return nil
}
