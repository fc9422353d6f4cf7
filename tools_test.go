package quadkv

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/quadkv/codec"
	"github.com/poiesic/quadkv/core"
	"github.com/poiesic/quadkv/ingestion"
	"github.com/poiesic/quadkv/reencode"
)

func TestTools_IngestReencodeSearch(t *testing.T) {
	db := newMemoryDatabase(t)
	ctx := context.Background()

	pipeline, err := db.NewIngestionPipeline(ingestion.WithPoolSize(2))
	require.NoError(t, err)
	defer pipeline.Release()

	results := pipeline.Ingest(ctx, []ingestion.Source{
		{Key: core.Key{"kb", "one"}, Format: codec.NQuads, Data: []byte("<ex:a> <ex:label> \"first graph\" .\n")},
		{Key: core.Key{"kb", "two"}, Format: codec.NQuads, Data: []byte("<ex:b> <ex:label> \"second graph\" .\n")},
	})
	for _, r := range results {
		require.NoError(t, r.Err)
	}

	cfg := reencode.DefaultConfig()
	cfg.Format = codec.PQuads
	var progress bytes.Buffer
	reencoder, err := db.NewReencoder(cfg, &progress)
	require.NoError(t, err)
	stats, err := reencoder.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Rewritten)

	blob, err := db.ExportGraph(ctx, core.Key{"kb", "one"}, "", core.ConsistencyStrong)
	require.NoError(t, err)
	assert.Equal(t, codec.PQuads, blob.Format)

	searcher, err := db.NewSearcher()
	require.NoError(t, err)
	defer searcher.Release()

	hits, err := searcher.Select(ctx, core.Key{"kb"}, "SELECT ?s WHERE { ?s <ex:label> ?l }", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	literals, err := searcher.FindLiterals(ctx, core.Key{"kb"}, "second", 0)
	require.NoError(t, err)
	require.Len(t, literals, 1)
	assert.Equal(t, core.Key{"kb", "two"}, literals[0].Key)
}
