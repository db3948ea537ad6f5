package vectordb

import (
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPGStore(metric Metric, indexType IndexType) *pgStore {
	return &pgStore{
		tableIdent: `"document_embeddings"`,
		indexIdent: `"document_embeddings_embedding_idx"`,
		dimension:  2,
		metric:     metric,
		indexType:  indexType,
		maxTopK:    10,
		psql:       sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func TestPGStore_BuildSearch(t *testing.T) {
	t.Run("Should order by cosine distance and filter on metadata", func(t *testing.T) {
		store := testPGStore(MetricCosine, IndexHNSW)
		sql, args, err := store.buildSearch([]float32{1, 0}, SearchOptions{
			TopK:     3,
			MinScore: 0.7,
			Filters:  map[string]string{"documentId": "doc-1"},
		})
		require.NoError(t, err)
		assert.Contains(t, sql, "1 - (embedding <=> $1) AS score")
		assert.Contains(t, sql, `FROM "document_embeddings"`)
		assert.Contains(t, sql, "metadata ->> $2 = $3")
		assert.Contains(t, sql, "1 - (embedding <=> $4) >= $5")
		assert.Contains(t, sql, "ORDER BY embedding <=> $6 ASC")
		assert.Contains(t, sql, "LIMIT 3")
		require.Len(t, args, 6)
		assert.Equal(t, "documentId", args[1])
		assert.Equal(t, "doc-1", args[2])
		assert.Equal(t, 0.7, args[4])
	})

	t.Run("Should use the inner product operator", func(t *testing.T) {
		store := testPGStore(MetricIP, IndexHNSW)
		sql, _, err := store.buildSearch([]float32{1, 0}, SearchOptions{})
		require.NoError(t, err)
		assert.Contains(t, sql, "(embedding <#> $1) * -1 AS score")
		assert.Contains(t, sql, "LIMIT 5")
	})

	t.Run("Should clamp the limit to the configured maximum", func(t *testing.T) {
		store := testPGStore(MetricL2, IndexHNSW)
		sql, _, err := store.buildSearch([]float32{1, 0}, SearchOptions{TopK: 500})
		require.NoError(t, err)
		assert.Contains(t, sql, "1 / (1 + (embedding <-> $1))")
		assert.Contains(t, sql, "LIMIT 10")
	})
}

func TestPGStore_BuildDelete(t *testing.T) {
	t.Run("Should delete by document metadata", func(t *testing.T) {
		store := testPGStore(MetricCosine, IndexHNSW)
		sql, args, err := store.buildDelete(Filter{Metadata: map[string]string{"documentId": "doc-1"}})
		require.NoError(t, err)
		assert.Equal(t, `DELETE FROM "document_embeddings" WHERE metadata ->> $1 = $2`, sql)
		assert.Equal(t, []any{"documentId", "doc-1"}, args)
	})

	t.Run("Should delete by ids", func(t *testing.T) {
		store := testPGStore(MetricCosine, IndexHNSW)
		sql, args, err := store.buildDelete(Filter{IDs: []string{"a", "b"}})
		require.NoError(t, err)
		assert.Equal(t, `DELETE FROM "document_embeddings" WHERE id = ANY($1)`, sql)
		assert.Equal(t, []any{[]string{"a", "b"}}, args)
	})
}

func TestPGStore_IndexStatement(t *testing.T) {
	t.Run("Should build an hnsw index for the metric", func(t *testing.T) {
		stmt := testPGStore(MetricCosine, IndexHNSW).indexStatement()
		assert.Contains(t, stmt, "USING hnsw (embedding vector_cosine_ops)")
	})

	t.Run("Should build an ivfflat index with lists", func(t *testing.T) {
		stmt := testPGStore(MetricL2, IndexIVFFlat).indexStatement()
		assert.Contains(t, stmt, "USING ivfflat (embedding vector_l2_ops) WITH (lists = 100)")
	})
}
