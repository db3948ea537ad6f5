package vectordb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := newMemoryStore(&Config{Dimension: 4})

	t.Run("ShouldUpsertAndSearchByCosine", func(t *testing.T) {
		records := []Record{
			{ID: "a", Text: "alpha", Embedding: []float32{1, 0, 0, 0}, Metadata: map[string]any{"kind": "one"}},
			{ID: "b", Text: "bravo", Embedding: []float32{0, 1, 0, 0}, Metadata: map[string]any{"kind": "two"}},
		}
		require.NoError(t, store.Upsert(ctx, records))
		matches, err := store.Search(ctx, []float32{1, 0, 0, 0}, SearchOptions{TopK: 1})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "a", matches[0].ID)
	})

	t.Run("ShouldFilterByMetadata", func(t *testing.T) {
		matches, err := store.Search(
			ctx,
			[]float32{0, 1, 0, 0},
			SearchOptions{TopK: 2, Filters: map[string]string{"kind": "two"}},
		)
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "b", matches[0].ID)
	})

	t.Run("ShouldDeleteByID", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, Filter{IDs: []string{"a"}}))
		matches, err := store.Search(ctx, []float32{1, 0, 0, 0}, SearchOptions{TopK: 2, MinScore: 0.1})
		require.NoError(t, err)
		require.Len(t, matches, 0)
	})

	t.Run("ShouldFailUpsertWhenDimensionMismatch", func(t *testing.T) {
		mismatchStore := newMemoryStore(&Config{Dimension: 4})
		err := mismatchStore.Upsert(ctx, []Record{{ID: "bad", Embedding: []float32{1, 1, 1}}})
		require.Error(t, err)
	})

	t.Run("ShouldFailSearchWhenQueryDimensionMismatch", func(t *testing.T) {
		otherStore := newMemoryStore(&Config{Dimension: 2})
		record := Record{ID: "c", Embedding: []float32{1, 0}}
		require.NoError(t, otherStore.Upsert(ctx, []Record{record}))
		_, err := otherStore.Search(ctx, []float32{1, 0, 0}, SearchOptions{TopK: 1})
		require.Error(t, err)
	})

	t.Run("ShouldRespectTopKWhenExceedingAvailableRecords", func(t *testing.T) {
		limitedStore := newMemoryStore(&Config{Dimension: 2})
		records := []Record{
			{ID: "d", Text: "delta", Embedding: []float32{1, 0}},
			{ID: "e", Text: "echo", Embedding: []float32{0, 1}},
		}
		require.NoError(t, limitedStore.Upsert(ctx, records))
		matches, err := limitedStore.Search(ctx, []float32{1, 0}, SearchOptions{TopK: 10})
		require.NoError(t, err)
		require.Len(t, matches, 2)
	})
}

func TestMemoryStore_Metrics(t *testing.T) {
	ctx := context.Background()

	t.Run("Should rank by inner product when configured", func(t *testing.T) {
		store := newMemoryStore(&Config{Dimension: 2, Metric: MetricIP})
		require.NoError(t, store.Upsert(ctx, []Record{
			{ID: "short", Embedding: []float32{1, 0}},
			{ID: "long", Embedding: []float32{3, 0}},
		}))
		matches, err := store.Search(ctx, []float32{1, 0}, SearchOptions{TopK: 2})
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, "long", matches[0].ID)
		assert.InDelta(t, 3.0, matches[0].Score, 1e-9)
	})

	t.Run("Should map euclidean distance into a bounded score", func(t *testing.T) {
		store := newMemoryStore(&Config{Dimension: 2, Metric: MetricL2})
		require.NoError(t, store.Upsert(ctx, []Record{{ID: "x", Embedding: []float32{3, 4}}}))
		matches, err := store.Search(ctx, []float32{0, 0}, SearchOptions{TopK: 1})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.InDelta(t, 1.0/6.0, matches[0].Score, 1e-9)
	})

	t.Run("Should cap results at the configured maximum", func(t *testing.T) {
		store := newMemoryStore(&Config{Dimension: 2, MaxTopK: 1})
		require.NoError(t, store.Upsert(ctx, []Record{
			{ID: "a", Embedding: []float32{1, 0}},
			{ID: "b", Embedding: []float32{1, 0.1}},
		}))
		matches, err := store.Search(ctx, []float32{1, 0}, SearchOptions{TopK: 50})
		require.NoError(t, err)
		assert.Len(t, matches, 1)
	})

	t.Run("Should delete every record matching a metadata filter", func(t *testing.T) {
		store := newMemoryStore(&Config{Dimension: 2})
		require.NoError(t, store.Upsert(ctx, []Record{
			{ID: "a1", Embedding: []float32{1, 0}, Metadata: map[string]any{"documentId": "a"}},
			{ID: "a2", Embedding: []float32{0, 1}, Metadata: map[string]any{"documentId": "a"}},
			{ID: "b1", Embedding: []float32{1, 1}, Metadata: map[string]any{"documentId": "b"}},
		}))
		require.NoError(t, store.Delete(ctx, Filter{Metadata: map[string]string{"documentId": "a"}}))
		matches, err := store.Search(ctx, []float32{1, 0}, SearchOptions{TopK: 10})
		require.NoError(t, err)
		require.Len(t, matches, 1)
		assert.Equal(t, "b1", matches[0].ID)
	})

	t.Run("Should not leak caller mutations into stored metadata", func(t *testing.T) {
		store := newMemoryStore(&Config{Dimension: 2})
		meta := map[string]any{"fileName": "a.txt"}
		require.NoError(t, store.Upsert(ctx, []Record{{ID: "m", Embedding: []float32{1, 0}, Metadata: meta}}))
		meta["fileName"] = "changed"
		matches, err := store.Search(ctx, []float32{1, 0}, SearchOptions{TopK: 1})
		require.NoError(t, err)
		assert.Equal(t, "a.txt", matches[0].Metadata["fileName"])
	})
}

func TestMetadataMatches(t *testing.T) {
	t.Run("Should compare values by their string form", func(t *testing.T) {
		meta := map[string]any{"chunkIndex": 3, "documentId": "doc"}
		assert.True(t, metadataMatches(meta, map[string]string{"chunkIndex": "3"}))
		assert.True(t, metadataMatches(meta, nil))
		assert.False(t, metadataMatches(meta, map[string]string{"documentId": "other"}))
		assert.False(t, metadataMatches(meta, map[string]string{"missing": "x"}))
	})
}
