package embedder

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// HashClient embeds text by hashing lower-cased word tokens into a fixed number
// of signed buckets and L2-normalizing the result. Identical texts get identical
// vectors and texts sharing words get positive cosine similarity.
type HashClient struct {
	dimension int
}

// NewHashClient returns a deterministic embedding client of the given dimension.
func NewHashClient(dimension int) *HashClient {
	return &HashClient{dimension: dimension}
}

// CreateEmbedding implements embeddings.EmbedderClient.
func (c *HashClient) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = c.embed(text)
	}
	return out, nil
}

func (c *HashClient) embed(text string) []float32 {
	vec := make([]float32, c.dimension)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
	for _, tok := range tokens {
		h := fnv.New64a()
		_, _ = h.Write([]byte(tok))
		sum := h.Sum64()
		idx := int(sum % uint64(c.dimension))
		if sum&(1<<63) != 0 {
			vec[idx]--
		} else {
			vec[idx]++
		}
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm == 0 {
		return vec
	}
	scale := float32(1 / math.Sqrt(norm))
	for i := range vec {
		vec[i] *= scale
	}
	return vec
}
