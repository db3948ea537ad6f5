package embedder

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmbedder struct {
	docs  [][]float32
	query []float32
	err   error
}

func (s *stubEmbedder) EmbedDocuments(context.Context, []string) ([][]float32, error) {
	return s.docs, s.err
}

func (s *stubEmbedder) EmbedQuery(context.Context, string) ([]float32, error) {
	return s.query, s.err
}

func hashConfig() *Config {
	return &Config{ID: "test", Provider: ProviderHash, Model: "fnv", Dimension: 16, BatchSize: 2}
}

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestNew(t *testing.T) {
	t.Run("Should validate required fields", func(t *testing.T) {
		_, err := New(context.Background(), nil)
		assert.Error(t, err)

		cfg := hashConfig()
		cfg.ID = ""
		_, err = New(context.Background(), cfg)
		assert.ErrorIs(t, err, errMissingID)

		cfg = hashConfig()
		cfg.Dimension = 0
		_, err = New(context.Background(), cfg)
		assert.ErrorIs(t, err, errInvalidDimension)

		cfg = hashConfig()
		cfg.BatchSize = 0
		_, err = New(context.Background(), cfg)
		assert.ErrorIs(t, err, errInvalidBatchSize)
	})

	t.Run("Should reject unknown providers", func(t *testing.T) {
		cfg := hashConfig()
		cfg.Provider = "bogus"
		_, err := New(context.Background(), cfg)
		assert.ErrorContains(t, err, "not supported")
	})
}

func TestAdapter_HashProvider(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, hashConfig())
	require.NoError(t, err)

	t.Run("Should embed documents in order across batches", func(t *testing.T) {
		texts := []string{"alpha beta", "gamma", "alpha beta", "delta epsilon"}
		vectors, err := a.EmbedDocuments(ctx, texts)
		require.NoError(t, err)
		require.Len(t, vectors, 4)
		for _, v := range vectors {
			assert.Len(t, v, 16)
		}
		assert.Equal(t, vectors[0], vectors[2])
		assert.NotEqual(t, vectors[0], vectors[1])
	})

	t.Run("Should give identical query and document vectors for equal text", func(t *testing.T) {
		docs, err := a.EmbedDocuments(ctx, []string{"the quick brown fox"})
		require.NoError(t, err)
		q, err := a.EmbedQuery(ctx, "the quick brown fox")
		require.NoError(t, err)
		assert.InDelta(t, 1.0, cosine(docs[0], q), 1e-6)
	})

	t.Run("Should return nothing for no texts", func(t *testing.T) {
		vectors, err := a.EmbedDocuments(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, vectors)
	})

	t.Run("Should expose dimension and batch size", func(t *testing.T) {
		assert.Equal(t, 16, a.Dimension())
		assert.Equal(t, 2, a.BatchSize())
	})
}

func TestAdapter_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("Should wrap provider errors with the embedder id", func(t *testing.T) {
		cause := errors.New("429 rate limit exceeded")
		a, err := Wrap(hashConfig(), &stubEmbedder{err: cause})
		require.NoError(t, err)
		_, err = a.EmbedQuery(ctx, "q")
		require.ErrorIs(t, err, cause)
		assert.Contains(t, err.Error(), `embedder "test"`)
	})

	t.Run("Should reject vectors of the wrong dimension", func(t *testing.T) {
		a, err := Wrap(hashConfig(), &stubEmbedder{query: make([]float32, 3), docs: [][]float32{make([]float32, 3)}})
		require.NoError(t, err)
		_, err = a.EmbedQuery(ctx, "q")
		assert.ErrorIs(t, err, ErrDimensionMismatch)
		_, err = a.EmbedDocuments(ctx, []string{"d"})
		assert.ErrorIs(t, err, ErrDimensionMismatch)
	})

	t.Run("Should reject a vector count that differs from the input count", func(t *testing.T) {
		a, err := Wrap(hashConfig(), &stubEmbedder{docs: [][]float32{make([]float32, 16)}})
		require.NoError(t, err)
		_, err = a.EmbedDocuments(ctx, []string{"a", "b"})
		assert.ErrorContains(t, err, "received 1 embeddings for 2 texts")
	})

	t.Run("Should require an implementation", func(t *testing.T) {
		_, err := Wrap(hashConfig(), nil)
		assert.Error(t, err)
	})
}

func TestCategorizeError(t *testing.T) {
	t.Run("Should bucket provider errors", func(t *testing.T) {
		assert.Equal(t, errorTypeRateLimit, categorizeError(errors.New("HTTP 429")))
		assert.Equal(t, errorTypeAuth, categorizeError(errors.New("401 Unauthorized")))
		assert.Equal(t, errorTypeInvalidInput, categorizeError(errors.New("invalid input")))
		assert.Equal(t, errorTypeTimeout, categorizeError(context.DeadlineExceeded))
		assert.Equal(t, errorTypeServer, categorizeError(errors.New("boom")))
	})
}

type countingEmbedder struct {
	stubEmbedder
	queries int
}

func (c *countingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	c.queries++
	return c.stubEmbedder.EmbedQuery(ctx, text)
}

func TestAdapter_QueryCache(t *testing.T) {
	ctx := context.Background()
	vector := make([]float32, 16)
	vector[0] = 1

	t.Run("Should serve repeated questions from the cache", func(t *testing.T) {
		cfg := hashConfig()
		cfg.QueryCacheSize = 2
		impl := &countingEmbedder{stubEmbedder: stubEmbedder{query: vector}}
		a, err := Wrap(cfg, impl)
		require.NoError(t, err)
		for range 3 {
			got, err := a.EmbedQuery(ctx, "how much sun do tomatoes need?")
			require.NoError(t, err)
			assert.Equal(t, vector, got)
		}
		assert.Equal(t, 1, impl.queries)
		_, err = a.EmbedQuery(ctx, "another question")
		require.NoError(t, err)
		assert.Equal(t, 2, impl.queries)
	})

	t.Run("Should not cache failures", func(t *testing.T) {
		cfg := hashConfig()
		cfg.QueryCacheSize = 2
		impl := &countingEmbedder{stubEmbedder: stubEmbedder{err: errors.New("timeout")}}
		a, err := Wrap(cfg, impl)
		require.NoError(t, err)
		_, err = a.EmbedQuery(ctx, "q")
		require.Error(t, err)
		_, err = a.EmbedQuery(ctx, "q")
		require.Error(t, err)
		assert.Equal(t, 2, impl.queries)
	})

	t.Run("Should call the provider every time when disabled", func(t *testing.T) {
		impl := &countingEmbedder{stubEmbedder: stubEmbedder{query: vector}}
		a, err := Wrap(hashConfig(), impl)
		require.NoError(t, err)
		_, _ = a.EmbedQuery(ctx, "q")
		_, _ = a.EmbedQuery(ctx, "q")
		assert.Equal(t, 2, impl.queries)
	})
}
