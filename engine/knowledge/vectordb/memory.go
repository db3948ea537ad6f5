package vectordb

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/compozy/docrag/engine/core"
)

const defaultTopK = 5

// memoryStore keeps records in a map and scores them with a linear scan.
type memoryStore struct {
	mu        sync.RWMutex
	dimension int
	metric    Metric
	maxTopK   int
	records   map[string]Record
}

func newMemoryStore(cfg *Config) *memoryStore {
	return &memoryStore{
		dimension: cfg.Dimension,
		metric:    normalizeMetric(cfg.Metric),
		maxTopK:   cfg.MaxTopK,
		records:   make(map[string]Record),
	}
}

func (s *memoryStore) Upsert(_ context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.upsertLocked(records)
}

func (s *memoryStore) upsertLocked(records []Record) error {
	for i := range records {
		if len(records[i].Embedding) != s.dimension {
			return fmt.Errorf(
				"memory: record %q dimension mismatch (got %d want %d)",
				records[i].ID,
				len(records[i].Embedding),
				s.dimension,
			)
		}
	}
	for i := range records {
		rec := records[i]
		s.records[rec.ID] = Record{
			ID:        rec.ID,
			Text:      rec.Text,
			Embedding: append([]float32(nil), rec.Embedding...),
			Metadata:  core.CloneMap(rec.Metadata),
		}
	}
	return nil
}

func (s *memoryStore) Search(_ context.Context, query []float32, opts SearchOptions) ([]Match, error) {
	if len(query) != s.dimension {
		return nil, fmt.Errorf("memory: query dimension mismatch (got %d want %d)", len(query), s.dimension)
	}
	topK := capTopK(opts.TopK, s.maxTopK)
	s.mu.RLock()
	defer s.mu.RUnlock()
	candidates := make([]Match, 0, len(s.records))
	for _, rec := range s.records {
		if !metadataMatches(rec.Metadata, opts.Filters) {
			continue
		}
		score := similarity(s.metric, rec.Embedding, query)
		if score < opts.MinScore {
			continue
		}
		candidates = append(candidates, Match{
			ID:       rec.ID,
			Score:    score,
			Text:     rec.Text,
			Metadata: core.CloneMap(rec.Metadata),
		})
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Score == candidates[j].Score {
			return candidates[i].ID < candidates[j].ID
		}
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > topK {
		candidates = candidates[:topK]
	}
	return candidates, nil
}

func (s *memoryStore) Delete(_ context.Context, filter Filter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleteLocked(filter)
	return nil
}

// deleteLocked removes matching records and reports whether anything changed.
func (s *memoryStore) deleteLocked(filter Filter) bool {
	changed := false
	for _, id := range filter.IDs {
		if _, ok := s.records[id]; ok {
			delete(s.records, id)
			changed = true
		}
	}
	if len(filter.Metadata) == 0 {
		return changed
	}
	for id, rec := range s.records {
		if metadataMatches(rec.Metadata, filter.Metadata) {
			delete(s.records, id)
			changed = true
		}
	}
	return changed
}

func (s *memoryStore) Close(context.Context) error {
	return nil
}

// metadataMatches reports whether every filter key is present with an equal
// string form. An empty filter matches everything.
func metadataMatches(metadata map[string]any, filters map[string]string) bool {
	for key, want := range filters {
		got, ok := metadata[key]
		if !ok || got == nil {
			return false
		}
		if fmt.Sprint(got) != want {
			return false
		}
	}
	return true
}

func similarity(metric Metric, a, b []float32) float64 {
	switch metric {
	case MetricL2:
		return 1 / (1 + euclideanDistance(a, b))
	case MetricIP:
		return dotProduct(a, b)
	default:
		return cosineSimilarity(a, b)
	}
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		normA += x * x
		normB += y * y
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func dotProduct(a, b []float32) float64 {
	var dot float64
	for i := range min(len(a), len(b)) {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot
}

func euclideanDistance(a, b []float32) float64 {
	var sum float64
	for i := range min(len(a), len(b)) {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
