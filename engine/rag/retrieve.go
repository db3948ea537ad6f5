package rag

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/compozy/docrag/engine/document"
	"github.com/compozy/docrag/engine/knowledge/vectordb"
	"github.com/compozy/docrag/pkg/logger"
)

// Retrieve returns the chunks most similar to the question, best first.
// Out-of-range parameters are rejected, never clamped. When inactive
// documents are excluded, a filter naming an inactive or unknown document
// yields no results without searching.
func (s *Service) Retrieve(ctx context.Context, q Query) (results []Result, err error) {
	if err := s.validateQuery(&q); err != nil {
		return nil, err
	}
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "docrag.rag.retrieve", trace.WithAttributes(
		attribute.Int("max_results", q.MaxResults),
		attribute.Float64("min_score", q.MinScore),
		attribute.String("document_id", q.DocumentID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(attribute.Int("results", len(results)))
			recordRetrieval(ctx, len(results), time.Since(start))
		}
		span.End()
	}()

	if q.DocumentID != "" && s.settings.ExcludeInactive {
		active, err := s.isActive(ctx, q.DocumentID)
		if err != nil {
			return nil, err
		}
		if !active {
			logger.FromContext(ctx).Debug("Skipping search for inactive document", "document_id", q.DocumentID)
			return []Result{}, nil
		}
	}
	vector, err := s.embedQuery(ctx, q.Question)
	if err != nil {
		return nil, err
	}
	if q.DocumentID == "" && s.settings.ExcludeInactive {
		results, err = s.searchActive(ctx, vector, q)
	} else {
		opts := vectordb.SearchOptions{TopK: q.MaxResults, MinScore: q.MinScore}
		if q.DocumentID != "" {
			opts.Filters = map[string]string{MetaDocumentID: q.DocumentID}
		}
		var matches []vectordb.Match
		matches, err = s.search(ctx, vector, opts)
		results = qualifying(matches, q.MinScore)
	}
	if err != nil {
		return nil, err
	}
	if len(results) > q.MaxResults {
		results = results[:q.MaxResults]
	}
	return results, nil
}

// searchActive doubles the search window until MaxResults matches from active
// documents are found or no further qualifying match can exist.
func (s *Service) searchActive(ctx context.Context, vector []float32, q Query) ([]Result, error) {
	active := make(map[string]bool)
	topK := q.MaxResults * 2
	for {
		if limit := s.settings.MaxSearchResults; limit > 0 && topK > limit {
			topK = limit
		}
		matches, err := s.search(ctx, vector, vectordb.SearchOptions{TopK: topK, MinScore: q.MinScore})
		if err != nil {
			return nil, err
		}
		results, err := s.dropInactive(ctx, qualifying(matches, q.MinScore), active)
		if err != nil {
			return nil, err
		}
		exhausted := len(matches) < topK || matches[len(matches)-1].Score < q.MinScore
		atCeiling := s.settings.MaxSearchResults > 0 && topK >= s.settings.MaxSearchResults
		if len(results) >= q.MaxResults || exhausted || atCeiling {
			return results, nil
		}
		logger.FromContext(ctx).Debug("Widening search past inactive documents",
			"top_k", topK, "active", len(results), "wanted", q.MaxResults)
		topK *= 2
	}
}

// qualifying keeps matches at or above minScore, best first with ties by chunk id.
func qualifying(matches []vectordb.Match, minScore float64) []Result {
	results := make([]Result, 0, len(matches))
	for i := range matches {
		if matches[i].Score < minScore {
			continue
		}
		results = append(results, toResult(&matches[i]))
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score == results[j].Score {
			return results[i].ChunkID < results[j].ChunkID
		}
		return results[i].Score > results[j].Score
	})
	return results
}

// Search retrieves chunks and formats them as the answer context blob.
func (s *Service) Search(ctx context.Context, q Query) (*SearchResult, error) {
	results, err := s.Retrieve(ctx, q)
	if err != nil {
		return nil, err
	}
	return &SearchResult{
		Question:        strings.TrimSpace(q.Question),
		DocumentID:      strings.TrimSpace(q.DocumentID),
		MinScore:        q.MinScore,
		RelevantContent: FormatContext(results),
		Results:         results,
	}, nil
}

// FormatContext renders results as "[file: name, score: 0.00]" headed blocks
// separated by "---" lines, or the no-content marker when empty.
func FormatContext(results []Result) string {
	if len(results) == 0 {
		return NoRelevantContentMarker
	}
	blocks := make([]string, len(results))
	for i := range results {
		blocks[i] = fmt.Sprintf("[file: %s, score: %.2f]\n%s\n", results[i].FileName, results[i].Score, results[i].Text)
	}
	return strings.Join(blocks, "\n---\n")
}

func (s *Service) validateQuery(q *Query) error {
	q.Question = strings.TrimSpace(q.Question)
	q.DocumentID = strings.TrimSpace(q.DocumentID)
	if q.Question == "" {
		return invalid("question", "question must not be empty")
	}
	if q.MaxResults <= 0 || q.MaxResults > s.settings.MaxResultsLimit {
		return invalid("maxResults", "must be between 1 and %d, got %d", s.settings.MaxResultsLimit, q.MaxResults)
	}
	if math.IsNaN(q.MinScore) || q.MinScore < 0 || q.MinScore > 1 {
		return invalid("minScore", "must be between 0 and 1, got %v", q.MinScore)
	}
	return nil
}

func (s *Service) isActive(ctx context.Context, id string) (bool, error) {
	rec, err := s.documents.Get(ctx, id)
	if errors.Is(err, document.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("rag: load document %q: %w", id, err)
	}
	return rec.Active, nil
}

// dropInactive filters results to active documents, memoizing lookups in active.
func (s *Service) dropInactive(ctx context.Context, results []Result, active map[string]bool) ([]Result, error) {
	kept := results[:0]
	for _, r := range results {
		ok, seen := active[r.DocumentID]
		if !seen {
			var err error
			ok, err = s.isActive(ctx, r.DocumentID)
			if err != nil {
				return nil, err
			}
			active[r.DocumentID] = ok
		}
		if ok {
			kept = append(kept, r)
		}
	}
	return kept, nil
}

func (s *Service) embedQuery(ctx context.Context, question string) ([]float32, error) {
	ctx, span := s.tracer.Start(ctx, "docrag.rag.embed_query")
	defer span.End()
	vector, err := s.embedder.EmbedQuery(ctx, question)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, &EmbeddingError{Err: err}
	}
	return vector, nil
}

func (s *Service) search(ctx context.Context, vector []float32, opts vectordb.SearchOptions) ([]vectordb.Match, error) {
	ctx, span := s.tracer.Start(ctx, "docrag.rag.vector_search", trace.WithAttributes(
		attribute.Int("top_k", opts.TopK),
	))
	defer span.End()
	matches, err := s.store.Search(ctx, vector, opts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("rag: vector search: %w", err)
	}
	span.SetAttributes(attribute.Int("matches", len(matches)))
	return matches, nil
}

func toResult(m *vectordb.Match) Result {
	return Result{
		ChunkID:    m.ID,
		Text:       m.Text,
		Score:      m.Score,
		FileName:   metaString(m.Metadata, MetaFileName),
		DocumentID: metaString(m.Metadata, MetaDocumentID),
		ChunkIndex: metaInt(m.Metadata, MetaChunkIndex),
	}
}

func metaString(meta map[string]any, key string) string {
	switch v := meta[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// metaInt reads integers that may have round-tripped through JSON or a text store.
func metaInt(meta map[string]any, key string) int {
	switch v := meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case int32:
		return int(v)
	case float64:
		return int(v)
	case float32:
		return int(v)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}
