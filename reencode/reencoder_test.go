package reencode

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/quadkv/codec"
	"github.com/poiesic/quadkv/core"
	"github.com/poiesic/quadkv/storage/badger"
)

const sample = "<ex:s> <ex:p> <ex:o> .\n<ex:s> <ex:q> \"v\" <ex:g> .\n"

func setup(t *testing.T) (*badger.Backend, *codec.Codec) {
	t.Helper()
	backend, err := badger.NewMemoryBackend()
	require.NoError(t, err)
	t.Cleanup(func() { backend.Close() })

	cdc, err := codec.New()
	require.NoError(t, err)
	return backend, cdc
}

func put(t *testing.T, backend *badger.Backend, key core.Key, format string, expireIn time.Duration) {
	t.Helper()
	_, err := backend.WriteBlob(context.Background(), key, core.NewBlob(format, []byte(sample)), expireIn)
	require.NoError(t, err)
}

func testConfig(format string) *Config {
	cfg := DefaultConfig()
	cfg.Format = format
	cfg.BatchSize = 2
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func TestNewReencoder_Validation(t *testing.T) {
	backend, cdc := setup(t)

	_, err := NewReencoder(backend, cdc, testConfig("application/x-unknown"), nil)
	assert.ErrorIs(t, err, core.ErrUnsupportedFormat)

	cfg := testConfig(codec.PQuads)
	cfg.BatchSize = 0
	_, err = NewReencoder(backend, cdc, cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)

	cfg = testConfig(codec.PQuads)
	cfg.Consistency = core.Consistency(9)
	_, err = NewReencoder(backend, cdc, cfg, nil)
	assert.ErrorIs(t, err, core.ErrInvalidOptions)

	r, err := NewReencoder(backend, cdc, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, codec.NQuads, r.Target().Tag)
}

func TestReencoder_Run(t *testing.T) {
	backend, cdc := setup(t)
	ctx := context.Background()

	put(t, backend, core.Key{"people", "a"}, codec.NQuads, 0)
	put(t, backend, core.Key{"people", "b"}, codec.NQuads, time.Hour)
	put(t, backend, core.Key{"people", "c"}, codec.NQuads, 0)
	put(t, backend, core.Key{"other"}, codec.NQuads, 0)

	cfg := testConfig(codec.PQuads)
	cfg.Prefix = core.Key{"people"}
	var out bytes.Buffer
	r, err := NewReencoder(backend, cdc, cfg, &out)
	require.NoError(t, err)

	stats, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Rewritten: 3}, *stats)
	assert.Contains(t, out.String(), "3 rewritten")

	original, _, err := cdc.Decode(core.NewBlob(codec.NQuads, []byte(sample)), "")
	require.NoError(t, err)

	for _, name := range []string{"a", "b", "c"} {
		blob, err := backend.ReadBlob(ctx, core.Key{"people", name}, core.ConsistencyStrong)
		require.NoError(t, err)
		assert.Equal(t, codec.PQuads, blob.Format)

		store, _, err := cdc.Decode(blob, "")
		require.NoError(t, err)
		assert.True(t, original.Equal(store), "graph %s survives reencoding", name)
	}

	blob, err := backend.ReadBlob(ctx, core.Key{"people", "b"}, core.ConsistencyStrong)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), blob.ExpiresAt, 5*time.Second, "TTL is kept")

	blob, err = backend.ReadBlob(ctx, core.Key{"other"}, core.ConsistencyStrong)
	require.NoError(t, err)
	assert.Equal(t, codec.NQuads, blob.Format, "keys outside the prefix are untouched")

	stats, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Unchanged: 3}, *stats, "second run finds nothing to do")
}

func TestReencoder_EmptyGraphIsRetagged(t *testing.T) {
	backend, cdc := setup(t)
	ctx := context.Background()

	_, err := backend.WriteBlob(ctx, core.Key{"empty"}, core.NewBlob(codec.NQuads, nil), 0)
	require.NoError(t, err)

	r, err := NewReencoder(backend, cdc, testConfig(codec.PQuads), nil)
	require.NoError(t, err)
	stats, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Rewritten: 1}, *stats)

	blob, err := backend.ReadBlob(ctx, core.Key{"empty"}, core.ConsistencyStrong)
	require.NoError(t, err)
	require.NotNil(t, blob)
	assert.Equal(t, codec.PQuads, blob.Format)

	store, _, err := cdc.Decode(blob, "")
	require.NoError(t, err)
	assert.Zero(t, store.Len())
}

func TestReencoder_EmptyPrefix(t *testing.T) {
	backend, cdc := setup(t)
	var out bytes.Buffer
	r, err := NewReencoder(backend, cdc, testConfig(codec.PQuads), &out)
	require.NoError(t, err)

	stats, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, *stats)
	assert.Contains(t, out.String(), "No graphs found")
}

func TestReencoder_MalformedGraph(t *testing.T) {
	backend, cdc := setup(t)
	ctx := context.Background()

	put(t, backend, core.Key{"a"}, codec.NQuads, 0)
	_, err := backend.WriteBlob(ctx, core.Key{"b"}, core.NewBlob(codec.NQuads, []byte("this is not n-quads\n")), 0)
	require.NoError(t, err)

	r, err := NewReencoder(backend, cdc, testConfig(codec.PQuads), nil)
	require.NoError(t, err)

	stats, err := r.Run(ctx)
	assert.ErrorIs(t, err, core.ErrParse)
	assert.Equal(t, 1, stats.Rewritten, "graphs before the bad one are kept")

	blob, err := backend.ReadBlob(ctx, core.Key{"b"}, core.ConsistencyStrong)
	require.NoError(t, err)
	assert.Equal(t, codec.NQuads, blob.Format)
}

func TestReencoder_Canceled(t *testing.T) {
	backend, cdc := setup(t)
	put(t, backend, core.Key{"a"}, codec.NQuads, 0)

	r, err := NewReencoder(backend, cdc, testConfig(codec.PQuads), nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestKeyIterator_Batches(t *testing.T) {
	backend, _ := setup(t)
	for _, name := range []string{"a", "b", "c", "d", "e"} {
		put(t, backend, core.Key{name}, codec.NQuads, 0)
	}

	var sizes []int
	var seen []string
	err := NewKeyIterator(backend, nil, 2).ForEach(context.Background(), func(keys []core.Key) error {
		sizes = append(sizes, len(keys))
		for _, k := range keys {
			seen = append(seen, k.String())
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{2, 2, 1}, sizes)
	assert.Equal(t, []string{"a", "b", "c", "d", "e"}, seen)
}

func TestKeyIterator_StopsOnError(t *testing.T) {
	backend, _ := setup(t)
	for _, name := range []string{"a", "b", "c"} {
		put(t, backend, core.Key{name}, codec.NQuads, 0)
	}

	boom := errors.New("boom")
	calls := 0
	err := NewKeyIterator(backend, nil, 1).ForEach(context.Background(), func([]core.Key) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}
