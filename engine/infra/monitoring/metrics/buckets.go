package metrics

// Histogram bucket boundaries shared across packages.
var (
	// HTTPDurationBuckets are request latencies in seconds.
	HTTPDurationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	// ProviderDurationBuckets cover embedding and generation calls to hosted models.
	ProviderDurationBuckets = []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
	// StoreDurationBuckets are vector and metadata store round trips.
	StoreDurationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2}
	// ResultCountBuckets count matches returned by a single search.
	ResultCountBuckets = []float64{0, 1, 3, 5, 10, 25, 50, 100}
	// SimilarityBuckets span cosine similarity in tenths.
	SimilarityBuckets = []float64{0, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0}
)
