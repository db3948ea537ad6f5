package vectordb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgvector "github.com/pgvector/pgvector-go"
)

const (
	pgDefaultTable   = "document_embeddings"
	pgIVFFlatLists   = 100
	pgHNSWM          = 16
	pgHNSWConstruct  = 64
	pgEmbeddingField = "embedding"
)

type pgStore struct {
	id         string
	pool       *pgxpool.Pool
	tableIdent string
	indexIdent string
	dimension  int
	metric     Metric
	indexType  IndexType
	ensureIdx  bool
	maxTopK    int
	psql       sq.StatementBuilderType
}

func newPGStore(ctx context.Context, cfg *Config) (Store, error) {
	if cfg == nil {
		return nil, errors.New("vector_db config is required")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("vector_db %q: failed to connect to postgres: %w", cfg.ID, err)
	}
	table := cfg.Table
	if table == "" {
		table = pgDefaultTable
	}
	indexType := cfg.IndexType
	if indexType == "" {
		indexType = IndexHNSW
	}
	store := &pgStore{
		id:         cfg.ID,
		pool:       pool,
		tableIdent: pgx.Identifier{table}.Sanitize(),
		indexIdent: pgx.Identifier{table + "_embedding_idx"}.Sanitize(),
		dimension:  cfg.Dimension,
		metric:     normalizeMetric(cfg.Metric),
		indexType:  indexType,
		ensureIdx:  cfg.EnsureIndex,
		maxTopK:    cfg.MaxTopK,
		psql:       sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
	if err := store.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	trackVectorPool(cfg.ID, pool)
	return store, nil
}

// distanceOperator returns the pgvector operator and operator class for the metric.
func distanceOperator(metric Metric) (op string, opsClass string) {
	switch metric {
	case MetricL2:
		return "<->", "vector_l2_ops"
	case MetricIP:
		return "<#>", "vector_ip_ops"
	default:
		return "<=>", "vector_cosine_ops"
	}
}

// scoreExpression converts a distance into a similarity where higher is better.
func scoreExpression(metric Metric) string {
	op, _ := distanceOperator(metric)
	distance := fmt.Sprintf("(%s %s ?)", pgEmbeddingField, op)
	switch metric {
	case MetricL2:
		return "1 / (1 + " + distance + ")"
	case MetricIP:
		return distance + " * -1"
	default:
		return "1 - " + distance
	}
}

func (p *pgStore) indexStatement() string {
	_, opsClass := distanceOperator(p.metric)
	switch p.indexType {
	case IndexIVFFlat:
		return fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s ON %s USING ivfflat (%s %s) WITH (lists = %d)",
			p.indexIdent, p.tableIdent, pgEmbeddingField, opsClass, pgIVFFlatLists,
		)
	default:
		return fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s ON %s USING hnsw (%s %s) WITH (m = %d, ef_construction = %d)",
			p.indexIdent, p.tableIdent, pgEmbeddingField, opsClass, pgHNSWM, pgHNSWConstruct,
		)
	}
}

func (p *pgStore) ensureSchema(ctx context.Context) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("pgvector: acquire connection: %w", err)
	}
	defer conn.Release()
	if _, err = conn.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector"); err != nil {
		return fmt.Errorf("pgvector: enable extension: %w", err)
	}
	createTable := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		id TEXT PRIMARY KEY,
		embedding vector(%d) NOT NULL,
		document TEXT NOT NULL,
		metadata JSONB NOT NULL DEFAULT '{}'::jsonb,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`, p.tableIdent, p.dimension)
	if _, err = conn.Exec(ctx, createTable); err != nil {
		return fmt.Errorf("pgvector: create table: %w", err)
	}
	if p.ensureIdx {
		if _, err = conn.Exec(ctx, p.indexStatement()); err != nil {
			return fmt.Errorf("pgvector: create index: %w", err)
		}
	}
	return nil
}

func (p *pgStore) Upsert(ctx context.Context, records []Record) (err error) {
	if len(records) == 0 {
		return nil
	}
	for i := range records {
		if len(records[i].Embedding) != p.dimension {
			return fmt.Errorf(
				"pgvector: record %q dimension mismatch (got %d want %d)",
				records[i].ID,
				len(records[i].Embedding),
				p.dimension,
			)
		}
	}
	tx, txErr := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if txErr != nil {
		return fmt.Errorf("pgvector: begin tx: %w", txErr)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = fmt.Errorf("pgvector: rollback failed: %w; original error: %v", rbErr, err)
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("pgvector: commit: %w", commitErr)
		}
	}()
	now := time.Now().UTC()
	batch := &pgx.Batch{}
	for i := range records {
		rec := records[i]
		metadata, marshalErr := json.Marshal(nonNilMetadata(rec.Metadata))
		if marshalErr != nil {
			return fmt.Errorf("pgvector: marshal metadata for %q: %w", rec.ID, marshalErr)
		}
		query, args, buildErr := p.psql.
			Insert(p.tableIdent).
			Columns("id", pgEmbeddingField, "document", "metadata", "updated_at").
			Values(rec.ID, pgvector.NewVector(rec.Embedding), rec.Text, metadata, now).
			Suffix(`ON CONFLICT (id) DO UPDATE SET
    embedding = excluded.embedding,
    document = excluded.document,
    metadata = excluded.metadata,
    updated_at = excluded.updated_at`).
			ToSql()
		if buildErr != nil {
			return fmt.Errorf("pgvector: build upsert: %w", buildErr)
		}
		batch.Queue(query, args...)
	}
	results := tx.SendBatch(ctx, batch)
	for i := range records {
		if _, execErr := results.Exec(); execErr != nil {
			_ = results.Close()
			return fmt.Errorf("pgvector: upsert %q: %w", records[i].ID, execErr)
		}
	}
	if closeErr := results.Close(); closeErr != nil {
		return fmt.Errorf("pgvector: close batch: %w", closeErr)
	}
	return nil
}

func (p *pgStore) buildSearch(query []float32, opts SearchOptions) (string, []any, error) {
	vec := pgvector.NewVector(query)
	score := scoreExpression(p.metric)
	op, _ := distanceOperator(p.metric)
	builder := p.psql.
		Select("id", "document", "metadata").
		Column(sq.Expr(score+" AS score", vec)).
		From(p.tableIdent)
	for _, key := range sortedKeys(opts.Filters) {
		builder = builder.Where(sq.Expr("metadata ->> ? = ?", key, opts.Filters[key]))
	}
	if opts.MinScore > 0 {
		builder = builder.Where(sq.Expr(score+" >= ?", vec, opts.MinScore))
	}
	builder = builder.
		OrderByClause(fmt.Sprintf("%s %s ? ASC", pgEmbeddingField, op), vec).
		Limit(uint64(capTopK(opts.TopK, p.maxTopK)))
	return builder.ToSql()
}

func (p *pgStore) Search(ctx context.Context, query []float32, opts SearchOptions) ([]Match, error) {
	if len(query) != p.dimension {
		return nil, fmt.Errorf("pgvector: query dimension mismatch (got %d want %d)", len(query), p.dimension)
	}
	sql, args, err := p.buildSearch(query, opts)
	if err != nil {
		return nil, fmt.Errorf("pgvector: build search: %w", err)
	}
	rows, err := p.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("pgvector: search: %w", err)
	}
	defer rows.Close()
	results := make([]Match, 0, capTopK(opts.TopK, p.maxTopK))
	for rows.Next() {
		var (
			id          string
			document    string
			metadataRaw []byte
			score       float64
		)
		if err := rows.Scan(&id, &document, &metadataRaw, &score); err != nil {
			return nil, fmt.Errorf("pgvector: scan: %w", err)
		}
		meta := make(map[string]any)
		if len(metadataRaw) > 0 {
			if unmarshalErr := json.Unmarshal(metadataRaw, &meta); unmarshalErr != nil {
				return nil, fmt.Errorf("pgvector: decode metadata: %w", unmarshalErr)
			}
		}
		results = append(results, Match{ID: id, Score: score, Text: document, Metadata: meta})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("pgvector: search rows: %w", err)
	}
	return results, nil
}

func (p *pgStore) buildDelete(filter Filter) (string, []any, error) {
	builder := p.psql.Delete(p.tableIdent)
	if len(filter.IDs) > 0 {
		builder = builder.Where(sq.Expr("id = ANY(?)", filter.IDs))
	}
	for _, key := range sortedKeys(filter.Metadata) {
		builder = builder.Where(sq.Expr("metadata ->> ? = ?", key, filter.Metadata[key]))
	}
	return builder.ToSql()
}

func (p *pgStore) Delete(ctx context.Context, filter Filter) error {
	if len(filter.IDs) == 0 && len(filter.Metadata) == 0 {
		return nil
	}
	sql, args, err := p.buildDelete(filter)
	if err != nil {
		return fmt.Errorf("pgvector: build delete: %w", err)
	}
	if _, err := p.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("pgvector: delete: %w", err)
	}
	return nil
}

func (p *pgStore) Close(_ context.Context) error {
	untrackVectorPool(p.id)
	p.pool.Close()
	return nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func nonNilMetadata(meta map[string]any) map[string]any {
	if meta == nil {
		return map[string]any{}
	}
	return meta
}
