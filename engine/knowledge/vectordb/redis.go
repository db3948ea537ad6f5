package vectordb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/gosimple/slug"
	"github.com/redis/go-redis/v9"

	"github.com/compozy/docrag/pkg/logger"
)

const redisFallbackSet = "docrag:chunks"

// filterable attribute names must be plain identifiers to appear in a FILTER expression.
var redisAttrName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// redisStore keeps chunk embeddings in a Redis vector set. Each element carries
// a JSON attribute document holding the chunk text, the full metadata and a
// flat string copy of every filterable metadata field.
type redisStore struct {
	rdb       *redis.Client
	set       string
	dimension int
	maxTopK   int
}

// chunkAttributes is the JSON document attached to each vector set element.
type chunkAttributes struct {
	Text     string            `json:"_text"`
	Metadata map[string]any    `json:"_meta,omitempty"`
	Fields   map[string]string `json:"-"`
}

func (a chunkAttributes) payload() map[string]any {
	out := make(map[string]any, len(a.Fields)+2)
	for k, v := range a.Fields {
		out[k] = v
	}
	out["_text"] = a.Text
	if len(a.Metadata) > 0 {
		out["_meta"] = a.Metadata
	}
	return out
}

func newRedisStore(ctx context.Context, cfg *Config) (Store, error) {
	opts, err := redis.ParseURL(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("redis vector_db %q: invalid dsn: %w", cfg.ID, err)
	}
	// VSIM WITHSCORES replies are maps, which need RESP3
	opts.Protocol = 3
	opts.UnstableResp3 = true
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis vector_db %q: ping failed: %w", cfg.ID, err)
	}
	set := redisSetName(cfg)
	logger.FromContext(ctx).Debug("Using redis vector set", "vector_db_id", cfg.ID, "set", set, "addr", opts.Addr)
	return &redisStore{rdb: rdb, set: set, dimension: cfg.Dimension, maxTopK: cfg.MaxTopK}, nil
}

// redisSetName prefers the collection, then the table, then the store id.
func redisSetName(cfg *Config) string {
	for _, name := range []string{cfg.Collection, cfg.Table, cfg.ID} {
		if s := slug.Make(name); s != "" {
			return "docrag:" + s
		}
	}
	return redisFallbackSet
}

func newChunkAttributes(rec *Record) chunkAttributes {
	attrs := chunkAttributes{Text: rec.Text, Metadata: rec.Metadata, Fields: map[string]string{}}
	for k, v := range rec.Metadata {
		if redisAttrName.MatchString(k) {
			attrs.Fields[k] = fmt.Sprint(v)
		}
	}
	return attrs
}

func (r *redisStore) Upsert(ctx context.Context, records []Record) error {
	for i := range records {
		if got := len(records[i].Embedding); got != r.dimension {
			return fmt.Errorf("redis: record %q has %d dimensions, want %d", records[i].ID, got, r.dimension)
		}
	}
	if len(records) == 0 {
		return nil
	}
	_, err := r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i := range records {
			rec := &records[i]
			pipe.VAdd(ctx, r.set, rec.ID, &redis.VectorValues{Val: widen(rec.Embedding)})
			pipe.VSetAttr(ctx, r.set, rec.ID, newChunkAttributes(rec).payload())
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: upsert %d vectors: %w", len(records), err)
	}
	return nil
}

func (r *redisStore) Search(ctx context.Context, query []float32, opts SearchOptions) ([]Match, error) {
	if len(query) != r.dimension {
		return nil, fmt.Errorf("redis: query has %d dimensions, want %d", len(query), r.dimension)
	}
	expr, err := redisFilterExpr(opts.Filters)
	if err != nil {
		return nil, err
	}
	args := &redis.VSimArgs{Count: int64(capTopK(opts.TopK, r.maxTopK)), Filter: expr}
	scored, err := r.rdb.VSimWithArgsWithScores(ctx, r.set, &redis.VectorValues{Val: widen(query)}, args).Result()
	switch {
	case errors.Is(err, redis.Nil):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("redis: similarity search: %w", err)
	}
	kept := scored[:0]
	for _, s := range scored {
		if opts.MinScore <= 0 || s.Score >= opts.MinScore {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil, nil
	}
	return r.hydrate(ctx, kept)
}

// hydrate fetches the attribute document of every scored element.
func (r *redisStore) hydrate(ctx context.Context, scored []redis.VectorScore) ([]Match, error) {
	cmds := make([]*redis.StringCmd, len(scored))
	_, err := r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i := range scored {
			cmds[i] = pipe.VGetAttr(ctx, r.set, scored[i].Name)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: fetch attributes: %w", err)
	}
	matches := make([]Match, 0, len(scored))
	for i, s := range scored {
		raw, err := cmds[i].Result()
		if errors.Is(err, redis.Nil) || strings.TrimSpace(raw) == "" {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("redis: read attributes of %q: %w", s.Name, err)
		}
		match, err := decodeRedisMatch(s.Name, s.Score, raw)
		if err != nil {
			return nil, err
		}
		matches = append(matches, match)
	}
	return matches, nil
}

func decodeRedisMatch(id string, score float64, raw string) (Match, error) {
	var attrs chunkAttributes
	if err := json.Unmarshal([]byte(raw), &attrs); err != nil {
		return Match{}, fmt.Errorf("redis: decode attributes of %q: %w", id, err)
	}
	if attrs.Metadata == nil {
		attrs.Metadata = map[string]any{}
	}
	return Match{ID: id, Score: score, Text: attrs.Text, Metadata: attrs.Metadata}, nil
}

func (r *redisStore) Delete(ctx context.Context, filter Filter) error {
	ids := make(map[string]struct{}, len(filter.IDs))
	for _, id := range filter.IDs {
		if id = strings.TrimSpace(id); id != "" {
			ids[id] = struct{}{}
		}
	}
	if len(filter.Metadata) > 0 {
		matched, err := r.elementsMatching(ctx, filter.Metadata)
		if err != nil {
			return err
		}
		for _, id := range matched {
			ids[id] = struct{}{}
		}
	}
	if len(ids) == 0 {
		return nil
	}
	_, err := r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for id := range ids {
			pipe.VRem(ctx, r.set, id)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: remove %d vectors: %w", len(ids), err)
	}
	return nil
}

// elementsMatching lists every element whose attributes satisfy fields. VSIM
// needs a query vector, so a zero vector is used with COUNT set to the size of
// the whole set.
func (r *redisStore) elementsMatching(ctx context.Context, fields map[string]string) ([]string, error) {
	expr, err := redisFilterExpr(fields)
	if err != nil {
		return nil, err
	}
	size, err := r.rdb.VCard(ctx, r.set).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis: count vectors: %w", err)
	}
	if size == 0 {
		return nil, nil
	}
	names, err := r.rdb.VSimWithArgs(
		ctx,
		r.set,
		&redis.VectorValues{Val: make([]float64, r.dimension)},
		&redis.VSimArgs{Count: size, Filter: expr},
	).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis: filter vectors: %w", err)
	}
	return names, nil
}

func (r *redisStore) Close(context.Context) error {
	return r.rdb.Close()
}

// redisFilterExpr renders an equality conjunction in key order.
func redisFilterExpr(fields map[string]string) (string, error) {
	if len(fields) == 0 {
		return "", nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		if !redisAttrName.MatchString(k) {
			return "", fmt.Errorf("redis: metadata key %q cannot be filtered", k)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteString(" && ")
		}
		fmt.Fprintf(&b, ".%s == %q", k, fields[k])
	}
	return b.String(), nil
}

func widen(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, x := range v {
		out[i] = float64(x)
	}
	return out
}
