package badger

import (
	"bytes"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/quadkv/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBackend_InMemory(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_FileSystem(t *testing.T) {
	tmpDir := t.TempDir()
	backend, err := OpenBackend(tmpDir, false)
	require.NoError(t, err)
	require.NotNil(t, backend)
	defer backend.Close()

	assert.False(t, backend.IsClosed())
}

func TestOpenBackend_WithLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	backend, err := NewMemoryBackend(WithLogger(logger))
	require.NoError(t, err)
	defer backend.Close()

	_, err = backend.WriteBlob(context.Background(), core.Key{"logged"}, core.NewBlob("application/n-quads", nil), 0)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "wrote graph blob")
	assert.Contains(t, buf.String(), "key=logged")
}

func TestBackendClose(t *testing.T) {
	backend, err := NewMemoryBackend()
	require.NoError(t, err)

	assert.False(t, backend.IsClosed())
	require.NoError(t, backend.Close())
	assert.True(t, backend.IsClosed())
}

func TestReadBlob_Absent(t *testing.T) {
	backend, err := NewMemoryBackend()
	require.NoError(t, err)
	defer backend.Close()

	blob, err := backend.ReadBlob(context.Background(), core.Key{"missing"}, core.ConsistencyStrong)
	require.NoError(t, err, "absent is not an error")
	assert.Nil(t, blob)
}

func TestWriteThenRead(t *testing.T) {
	backend, err := NewMemoryBackend()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	key := core.Key{"people", "alice"}
	blob := core.NewBlob("application/n-quads", []byte("<ex:s> <ex:p> <ex:o> .\n"))

	commit, err := backend.WriteBlob(ctx, key, blob, 0)
	require.NoError(t, err)
	assert.Equal(t, key, commit.Key)
	assert.Equal(t, blob.Digest, commit.Digest)
	assert.Equal(t, len(blob.Data), commit.Size)
	assert.True(t, commit.ExpiresAt.IsZero())

	for _, consistency := range []core.Consistency{core.ConsistencyStrong, core.ConsistencyEventual} {
		got, err := backend.ReadBlob(ctx, key, consistency)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, blob.Format, got.Format)
		assert.Equal(t, blob.Data, got.Data)
		assert.True(t, got.ExpiresAt.IsZero())
	}
}

func TestWriteBlob_Overwrites(t *testing.T) {
	backend, err := NewMemoryBackend()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	key := core.Key{"g"}

	_, err = backend.WriteBlob(ctx, key, core.NewBlob("application/n-quads", []byte("first")), 0)
	require.NoError(t, err)
	_, err = backend.WriteBlob(ctx, key, core.NewBlob("application/ld+json", []byte("second")), 0)
	require.NoError(t, err)
	_, err = backend.WriteBlob(ctx, key, core.NewBlob("application/ld+json", []byte("second")), 0)
	require.NoError(t, err, "writes are idempotent")

	got, err := backend.ReadBlob(ctx, key, core.ConsistencyStrong)
	require.NoError(t, err)
	assert.Equal(t, "application/ld+json", got.Format)
	assert.Equal(t, []byte("second"), got.Data)
}

func TestWriteBlob_TTL(t *testing.T) {
	backend, err := NewMemoryBackend()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	key := core.Key{"session"}

	commit, err := backend.WriteBlob(ctx, key, core.NewBlob("", []byte("x")), time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), commit.ExpiresAt, 5*time.Second)

	got, err := backend.ReadBlob(ctx, key, core.ConsistencyStrong)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.WithinDuration(t, time.Now().Add(time.Hour), got.ExpiresAt, 5*time.Second)
}

func TestWriteBlob_Expired(t *testing.T) {
	backend, err := NewMemoryBackend()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	key := core.Key{"ephemeral"}

	_, err = backend.WriteBlob(ctx, key, core.NewBlob("", []byte("x")), time.Second)
	require.NoError(t, err)

	// Badger TTLs have one-second resolution.
	time.Sleep(2100 * time.Millisecond)

	got, err := backend.ReadBlob(ctx, key, core.ConsistencyStrong)
	require.NoError(t, err)
	assert.Nil(t, got, "expired blobs read as absent")
}

func TestDeleteBlob(t *testing.T) {
	backend, err := NewMemoryBackend()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	key := core.Key{"g"}

	_, err = backend.WriteBlob(ctx, key, core.NewBlob("", []byte("x")), 0)
	require.NoError(t, err)
	require.NoError(t, backend.DeleteBlob(ctx, key))
	require.NoError(t, backend.DeleteBlob(ctx, key), "deleting an absent key is not an error")

	got, err := backend.ReadBlob(ctx, key, core.ConsistencyStrong)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListKeys(t *testing.T) {
	backend, err := NewMemoryBackend()
	require.NoError(t, err)
	defer backend.Close()

	ctx := context.Background()
	for _, key := range []core.Key{
		{"tenants", "acme", "people"},
		{"tenants", "acme", "places"},
		{"tenants", "acmecorp", "people"},
		{"other"},
	} {
		_, err := backend.WriteBlob(ctx, key, core.NewBlob("", []byte("x")), 0)
		require.NoError(t, err)
	}

	keys, err := backend.ListKeys(ctx, core.Key{"tenants", "acme"})
	require.NoError(t, err)
	assert.ElementsMatch(t, []core.Key{
		{"tenants", "acme", "people"},
		{"tenants", "acme", "places"},
	}, keys, "prefix matches whole segments only")

	all, err := backend.ListKeys(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestReadBlob_CorruptEnvelope(t *testing.T) {
	backend, err := NewMemoryBackend()
	require.NoError(t, err)
	defer backend.Close()

	key := core.Key{"corrupt"}
	err = backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeGraphKey(key), []byte{1, 0xff}); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
	require.NoError(t, err)

	_, err = backend.ReadBlob(context.Background(), key, core.ConsistencyStrong)
	assert.ErrorIs(t, err, core.ErrParse)
}

func TestClosedBackend_Unavailable(t *testing.T) {
	backend, err := NewMemoryBackend()
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	ctx := context.Background()
	_, err = backend.ReadBlob(ctx, core.Key{"g"}, core.ConsistencyStrong)
	assert.ErrorIs(t, err, core.ErrBackendUnavailable)

	_, err = backend.WriteBlob(ctx, core.Key{"g"}, core.NewBlob("", []byte("x")), 0)
	assert.ErrorIs(t, err, core.ErrBackendUnavailable)
}

func TestCanceledContext(t *testing.T) {
	backend, err := NewMemoryBackend()
	require.NoError(t, err)
	defer backend.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = backend.ReadBlob(ctx, core.Key{"g"}, core.ConsistencyStrong)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGraphKeyRoundTrip(t *testing.T) {
	keys := []core.Key{
		{"a"},
		{"with/slash", "and:colon"},
		{"unicode", "grüße"},
	}
	for _, key := range keys {
		parsed, err := parseGraphKey(makeGraphKey(key))
		require.NoError(t, err)
		assert.Equal(t, key, parsed)
	}

	_, err := parseGraphKey([]byte("other:thing"))
	assert.Error(t, err)
}
