package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// run executes the CLI against dbPath and returns stdout.
func run(t *testing.T, dbPath string, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	app := newApp()
	app.Writer = &stdout
	app.ErrWriter = &stderr

	full := []string{"quadkv", "--log-level", "error"}
	if dbPath != "" {
		full = append(full, "--db", dbPath)
	}
	err := app.Run(append(full, args...))
	return stdout.String(), err
}

func mustRun(t *testing.T, dbPath string, args ...string) string {
	t.Helper()
	out, err := run(t, dbPath, args...)
	require.NoError(t, err, strings.Join(args, " "))
	return out
}

func findFlag(cmd *cli.Command, name string) cli.Flag {
	for _, f := range cmd.Flags {
		for _, n := range f.Names() {
			if n == name {
				return f
			}
		}
	}
	return nil
}

func TestCommandFlags(t *testing.T) {
	app := newApp()

	t.Run("query requires key", func(t *testing.T) {
		_, err := run(t, t.TempDir(), "query", "ASK {}")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "key")
	})

	t.Run("reencode defaults", func(t *testing.T) {
		cmd := app.Command("reencode")
		require.NotNil(t, cmd)

		batch, ok := findFlag(cmd, "batch-size").(*cli.IntFlag)
		require.True(t, ok)
		assert.Equal(t, 100, batch.Value)

		delay, ok := findFlag(cmd, "retry-delay").(*cli.DurationFlag)
		require.True(t, ok)
		assert.Equal(t, time.Second, delay.Value)
	})

	t.Run("flags have no EnvVars", func(t *testing.T) {
		for _, cmd := range app.Commands {
			for _, f := range cmd.Flags {
				if sf, ok := f.(*cli.StringFlag); ok {
					assert.Empty(t, sf.EnvVars, "%s --%s", cmd.Name, sf.Name)
				}
			}
		}
	})
}

func TestSetupLogger(t *testing.T) {
	for _, level := range []string{"debug", "INFO", "warn", "error"} {
		app := newApp()
		app.Writer = &bytes.Buffer{}
		app.ErrWriter = &bytes.Buffer{}
		assert.NoError(t, app.Run([]string{"quadkv", "--log-level", level}), level)
	}

	app := newApp()
	app.ErrWriter = &bytes.Buffer{}
	err := app.Run([]string{"quadkv", "--log-level", "loud"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestMissingDatabase(t *testing.T) {
	_, err := run(t, "", "keys")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database path is required")
}

func TestQueryLifecycle(t *testing.T) {
	dbPath := t.TempDir()

	mustRun(t, dbPath, "query", "--key", "people/team",
		`INSERT DATA { <ex:alice> <ex:name> "Alice" . <ex:bob> <ex:name> "Bob" }`)

	out := mustRun(t, dbPath, "query", "-k", "people/team",
		"-q", "SELECT ?s WHERE { ?s <ex:name> ?n } ORDER BY ?s")
	assert.Equal(t, "s\n<ex:alice>\n<ex:bob>\n", out)

	out = mustRun(t, dbPath, "query", "-k", "people/team", "ASK { <ex:alice> ?p ?o }")
	assert.Equal(t, "true\n", out)

	out = mustRun(t, dbPath, "query", "-k", "people/team",
		"CONSTRUCT { ?s <ex:label> ?n } WHERE { ?s <ex:name> ?n }")
	assert.Contains(t, out, "<ex:alice> <ex:label> \"Alice\"")

	out = mustRun(t, dbPath, "keys")
	assert.Equal(t, "people/team\n", out)

	_, err := run(t, dbPath, "query", "-k", "people/team", "SELECT WHERE")
	assert.Error(t, err)

	_, err = run(t, dbPath, "query", "-k", "people/team", "--consistency", "maybe", "ASK {}")
	assert.Error(t, err)

	mustRun(t, dbPath, "delete", "--key", "people/team")
	assert.Empty(t, mustRun(t, dbPath, "keys"))
}

func TestQueryFromFile(t *testing.T) {
	dbPath := t.TempDir()
	path := filepath.Join(t.TempDir(), "q.rq")
	require.NoError(t, os.WriteFile(path, []byte("ASK { ?s ?p ?o }"), 0o644))

	out := mustRun(t, dbPath, "query", "-k", "empty", "--file", path)
	assert.Equal(t, "false\n", out)

	_, err := run(t, dbPath, "query", "-k", "empty")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no query given")
}

func TestImportExport(t *testing.T) {
	dbPath := t.TempDir()
	dir := t.TempDir()
	data := "<ex:s> <ex:p> <ex:o> .\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.nq"), []byte(data), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "nested", "two.nt"), []byte(data), 0o644))

	out := mustRun(t, dbPath, "import", "--key", "single", "--file", filepath.Join(dir, "one.nq"))
	assert.Contains(t, out, "single\t")

	mustRun(t, dbPath, "import", "--dir", dir, "--prefix", "bulk", "--store-format", "pquads")
	assert.Equal(t, "bulk/one\nbulk/nested/two\nsingle\n", mustRun(t, dbPath, "keys"))
	assert.Equal(t, "bulk/one\nbulk/nested/two\n", mustRun(t, dbPath, "keys", "--prefix", "bulk"))

	out = mustRun(t, dbPath, "export", "--key", "single")
	assert.Equal(t, data, out)

	out = mustRun(t, dbPath, "export", "--key", "bulk/one", "--format", "nquads")
	assert.Equal(t, data, out)

	target := filepath.Join(t.TempDir(), "out.nq")
	mustRun(t, dbPath, "export", "--key", "single", "-o", target)
	written, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, data, string(written))

	_, err = run(t, dbPath, "import", "--key", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one of --file or --dir")
}

func TestReencodeAndSearch(t *testing.T) {
	dbPath := t.TempDir()
	mustRun(t, dbPath, "query", "-k", "kb/a", `INSERT DATA { <ex:a> <ex:label> "red apple" }`)
	mustRun(t, dbPath, "query", "-k", "kb/b", `INSERT DATA { <ex:b> <ex:label> "green pear" }`)

	mustRun(t, dbPath, "reencode", "--format", "pquads", "--prefix", "kb", "--retry-delay", "1ms")
	out := mustRun(t, dbPath, "query", "-k", "kb/a", "--format", "pquads", "-q", "ASK { <ex:a> ?p ?o }")
	assert.Equal(t, "true\n", out)

	out = mustRun(t, dbPath, "search", "--prefix", "kb", "--select", "SELECT ?s WHERE { ?s <ex:label> ?l }")
	assert.Contains(t, out, "Found 2 hits")
	assert.Contains(t, out, "kb/a\t?s=<ex:a>")

	out = mustRun(t, dbPath, "search", "--text", "apple")
	assert.Contains(t, out, "Found 1 hits")
	assert.Contains(t, out, "(kb/a)")

	_, err := run(t, dbPath, "search")
	assert.Error(t, err)

	_, err = run(t, dbPath, "reencode", "--batch-size", "0")
	assert.Error(t, err)
}

func TestLoadFileConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quadkv.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
db: /var/lib/quadkv
log_level: debug
default_format: application/x-protobuf
pool_size: 4
server:
  listen: 127.0.0.1:9000
  cors_origins: [https://app.example]
  read_timeout: 10s
  max_body_bytes: 1048576
`), 0o644))

	cfg, err := loadFileConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/quadkv", cfg.DB)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 4, cfg.PoolSize)
	assert.Equal(t, "127.0.0.1:9000", cfg.Server.Listen)
	assert.Equal(t, []string{"https://app.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, int64(1<<20), cfg.Server.MaxBodyBytes)

	empty := filepath.Join(dir, "empty.yaml")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	cfg, err = loadFileConfig(empty)
	require.NoError(t, err)
	assert.Empty(t, cfg.DB)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("dbpath: /tmp\n"), 0o644))
	_, err = loadFileConfig(bad)
	assert.Error(t, err, "unknown fields are rejected")

	_, err = loadFileConfig(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestConfigFileSuppliesDatabase(t *testing.T) {
	dbPath := t.TempDir()
	path := filepath.Join(t.TempDir(), "quadkv.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db: "+dbPath+"\ndefault_format: pquads\n"), 0o644))

	mustRun(t, "", "--config", path, "query", "-k", "g", `INSERT DATA { <ex:s> <ex:p> <ex:o> }`)
	out := mustRun(t, "", "--config", path, "keys")
	assert.Equal(t, "g\n", out)

	out = mustRun(t, dbPath, "export", "-k", "g", "--format", "nquads")
	assert.Equal(t, "<ex:s> <ex:p> <ex:o> .\n", out)
}
