package metrics

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricName(t *testing.T) {
	t.Run("Should prefix names with the namespace once", func(t *testing.T) {
		assert.Equal(t, "docrag_build_info", MetricName("build_info"))
		assert.Equal(t, "docrag_uptime_seconds", MetricName("docrag_uptime_seconds"))
		assert.Equal(t, "docrag_", MetricName(""))
	})
}

func TestMetricNameWithSubsystem(t *testing.T) {
	t.Run("Should join namespace subsystem and name", func(t *testing.T) {
		assert.Equal(t, "docrag_rag_ingest_duration_seconds", MetricNameWithSubsystem("rag", "ingest_duration_seconds"))
		assert.Equal(t, "docrag_vectordb_top_score", MetricNameWithSubsystem("_vectordb_", "top_score"))
	})

	t.Run("Should skip empty parts", func(t *testing.T) {
		assert.Equal(t, "docrag_embedder", MetricNameWithSubsystem("embedder", ""))
		assert.Equal(t, "docrag_http_requests_total", MetricNameWithSubsystem("", "http_requests_total"))
	})
}

func TestBuckets(t *testing.T) {
	t.Run("Should keep every bucket set strictly increasing", func(t *testing.T) {
		sets := map[string][]float64{
			"http":       HTTPDurationBuckets,
			"provider":   ProviderDurationBuckets,
			"store":      StoreDurationBuckets,
			"results":    ResultCountBuckets,
			"similarity": SimilarityBuckets,
		}
		for name, buckets := range sets {
			assert.True(t, sort.Float64sAreSorted(buckets), name)
			for i := 1; i < len(buckets); i++ {
				assert.Less(t, buckets[i-1], buckets[i], name)
			}
		}
	})
}
