package vectordb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/compozy/docrag/engine/core"
)

const (
	qdrantDefaultTimeout = 10 * time.Second
	qdrantTextKey        = "text"
)

type qdrantStore struct {
	client     *resty.Client
	collection string
	dimension  int
	metric     string
	maxTopK    int
}

// qdrantSearchResult captures the fields returned by Qdrant search responses.
type qdrantSearchResult struct {
	ID      any            `json:"id"`
	Score   float64        `json:"score"`
	Payload map[string]any `json:"payload"`
}

type qdrantError struct {
	Status struct {
		Error string `json:"error"`
	} `json:"status"`
}

func newQdrantStore(ctx context.Context, cfg *Config) (Store, error) {
	if cfg == nil {
		return nil, errors.New("vector_db config is required")
	}
	base := strings.TrimRight(cfg.DSN, "/")
	if base == "" {
		return nil, fmt.Errorf("vector_db %q: qdrant dsn is required", cfg.ID)
	}
	collection := cfg.Collection
	if collection == "" {
		collection = cfg.ID
	}
	client := resty.New().
		SetBaseURL(base).
		SetTimeout(qdrantDefaultTimeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	if cfg.APIKey != "" {
		client.SetHeader("api-key", cfg.APIKey)
	}
	store := &qdrantStore{
		client:     client,
		collection: collection,
		dimension:  cfg.Dimension,
		metric:     qdrantDistance(normalizeMetric(cfg.Metric)),
		maxTopK:    cfg.MaxTopK,
	}
	if err := store.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

func qdrantDistance(metric Metric) string {
	switch metric {
	case MetricL2:
		return "Euclid"
	case MetricIP:
		return "Dot"
	default:
		return "Cosine"
	}
}

func (q *qdrantStore) collectionPath(suffix string) string {
	return "/collections/" + q.collection + suffix
}

func (q *qdrantStore) ensureCollection(ctx context.Context) error {
	resp, err := q.client.R().SetContext(ctx).Get(q.collectionPath(""))
	if err != nil {
		return fmt.Errorf("qdrant: inspect collection: %w", err)
	}
	switch resp.StatusCode() {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return qdrantStatusError(resp)
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     q.dimension,
			"distance": q.metric,
		},
	}
	return q.do(ctx, http.MethodPut, q.collectionPath(""), body, nil)
}

// buildQdrantFilter builds the request filter payload for Qdrant operations.
func buildQdrantFilter(filters map[string]string) map[string]any {
	if len(filters) == 0 {
		return nil
	}
	must := make([]any, 0, len(filters))
	for _, key := range sortedKeys(filters) {
		must = append(must, map[string]any{
			"key":   key,
			"match": map[string]any{"value": filters[key]},
		})
	}
	return map[string]any{"must": must}
}

// mapQdrantResults converts Qdrant search results into the internal Match slice.
func mapQdrantResults(results []qdrantSearchResult, minScore float64) []Match {
	matches := make([]Match, 0, len(results))
	for _, res := range results {
		if res.Score < minScore {
			continue
		}
		payload := core.CloneMap(res.Payload)
		if payload == nil {
			payload = make(map[string]any)
		}
		text, _ := payload[qdrantTextKey].(string)
		delete(payload, qdrantTextKey)
		matches = append(matches, Match{
			ID:       fmt.Sprint(res.ID),
			Score:    res.Score,
			Text:     text,
			Metadata: payload,
		})
	}
	return matches
}

func (q *qdrantStore) Upsert(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]any, 0, len(records))
	for i := range records {
		rec := records[i]
		if len(rec.Embedding) != q.dimension {
			return fmt.Errorf("qdrant: record %q dimension mismatch", rec.ID)
		}
		payload := core.CloneMap(rec.Metadata)
		if payload == nil {
			payload = make(map[string]any)
		}
		payload[qdrantTextKey] = rec.Text
		points = append(points, map[string]any{
			"id":      rec.ID,
			"vector":  rec.Embedding,
			"payload": payload,
		})
	}
	return q.do(ctx, http.MethodPut, q.collectionPath("/points?wait=true"), map[string]any{"points": points}, nil)
}

func (q *qdrantStore) Search(ctx context.Context, query []float32, opts SearchOptions) ([]Match, error) {
	if len(query) != q.dimension {
		return nil, fmt.Errorf("qdrant: query dimension mismatch")
	}
	request := map[string]any{
		"vector":       query,
		"limit":        capTopK(opts.TopK, q.maxTopK),
		"with_payload": true,
	}
	if opts.MinScore > 0 {
		request["score_threshold"] = opts.MinScore
	}
	if filter := buildQdrantFilter(opts.Filters); filter != nil {
		request["filter"] = filter
	}
	var response struct {
		Result []qdrantSearchResult `json:"result"`
	}
	if err := q.do(ctx, http.MethodPost, q.collectionPath("/points/search"), request, &response); err != nil {
		return nil, err
	}
	return mapQdrantResults(response.Result, opts.MinScore), nil
}

func (q *qdrantStore) Delete(ctx context.Context, filter Filter) error {
	path := q.collectionPath("/points/delete?wait=true")
	if len(filter.IDs) > 0 {
		if err := q.do(ctx, http.MethodPost, path, map[string]any{"points": filter.IDs}, nil); err != nil {
			return err
		}
	}
	if f := buildQdrantFilter(filter.Metadata); f != nil {
		return q.do(ctx, http.MethodPost, path, map[string]any{"filter": f}, nil)
	}
	return nil
}

func (q *qdrantStore) Close(context.Context) error {
	return nil
}

func (q *qdrantStore) do(ctx context.Context, method, path string, body any, out any) error {
	req := q.client.R().SetContext(ctx).SetBody(body)
	if out != nil {
		req.SetResult(out)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("qdrant: request failed: %w", err)
	}
	if resp.IsError() {
		return qdrantStatusError(resp)
	}
	return nil
}

func qdrantStatusError(resp *resty.Response) error {
	var apiErr qdrantError
	if err := json.Unmarshal(resp.Body(), &apiErr); err != nil || apiErr.Status.Error == "" {
		return fmt.Errorf("qdrant: request failed with status %d", resp.StatusCode())
	}
	return fmt.Errorf("qdrant: %s (%d)", apiErr.Status.Error, resp.StatusCode())
}
