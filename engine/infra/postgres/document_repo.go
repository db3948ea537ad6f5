package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/compozy/docrag/engine/document"
)

// DB is the subset of pgxpool.Pool used by the repositories; pgxmock satisfies it.
type DB interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const documentsTable = "documents"

var documentColumns = []string{
	"id",
	"file_name",
	"chunk_count",
	"file_size_bytes",
	"file_type",
	"description",
	"active",
	"uploaded_at",
	"updated_at",
}

// DocumentRepo implements document.Repository on Postgres.
type DocumentRepo struct {
	db DB
}

var _ document.Repository = (*DocumentRepo)(nil)

func NewDocumentRepo(db DB) *DocumentRepo {
	return &DocumentRepo{db: db}
}

func selectDocuments() squirrel.SelectBuilder {
	return squirrel.
		Select(documentColumns...).
		From(documentsTable).
		PlaceholderFormat(squirrel.Dollar)
}

func (r *DocumentRepo) Create(ctx context.Context, rec *document.Record) error {
	if rec == nil {
		return fmt.Errorf("postgres: document record is required")
	}
	query, args, err := squirrel.
		Insert(documentsTable).
		Columns(documentColumns...).
		Values(
			rec.ID,
			rec.FileName,
			rec.ChunkCount,
			rec.FileSizeBytes,
			rec.FileType,
			rec.Description,
			rec.Active,
			rec.UploadedAt,
			rec.UpdatedAt,
		).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building insert: %w", err)
	}
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", document.ErrAlreadyExists, rec.ID)
		}
		return fmt.Errorf("postgres: create document %q: %w", rec.ID, err)
	}
	return nil
}

func (r *DocumentRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	const q = `SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)`
	if err := r.db.QueryRow(ctx, q, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("postgres: check document %q: %w", id, err)
	}
	return exists, nil
}

func (r *DocumentRepo) Get(ctx context.Context, id string) (*document.Record, error) {
	query, args, err := selectDocuments().Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	var rec document.Record
	if err := pgxscan.Get(ctx, r.db, &rec, query, args...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", document.ErrNotFound, id)
		}
		return nil, fmt.Errorf("postgres: get document %q: %w", id, err)
	}
	return &rec, nil
}

func (r *DocumentRepo) ListActive(ctx context.Context) ([]*document.Record, error) {
	return r.listActive(ctx, nil)
}

func (r *DocumentRepo) ListByFileType(ctx context.Context, fileType string) ([]*document.Record, error) {
	return r.listActive(ctx, squirrel.Eq{"file_type": fileType})
}

func (r *DocumentRepo) ListUploadedAfter(ctx context.Context, t time.Time) ([]*document.Record, error) {
	return r.listActive(ctx, squirrel.Gt{"uploaded_at": t.UTC()})
}

func (r *DocumentRepo) listActive(ctx context.Context, extra squirrel.Sqlizer) ([]*document.Record, error) {
	sb := selectDocuments().Where(squirrel.Eq{"active": true})
	if extra != nil {
		sb = sb.Where(extra)
	}
	query, args, err := sb.OrderBy("uploaded_at DESC", "id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building query: %w", err)
	}
	records := make([]*document.Record, 0)
	if err := pgxscan.Select(ctx, r.db, &records, query, args...); err != nil {
		return nil, fmt.Errorf("postgres: list documents: %w", err)
	}
	return records, nil
}

func (r *DocumentRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	query, args, err := squirrel.
		Update(documentsTable).
		Set("active", false).
		Set("updated_at", at.UTC()).
		Where(squirrel.Eq{"id": id}).
		Where("active").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("building update: %w", err)
	}
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("postgres: soft delete %q: %w", id, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}
	exists, err := r.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", document.ErrNotFound, id)
	}
	return nil
}

func (r *DocumentRepo) Stats(ctx context.Context) (*document.Stats, error) {
	const q = `SELECT COUNT(*) AS active_documents, COALESCE(SUM(chunk_count), 0) AS total_chunks
FROM documents WHERE active`
	var stats document.Stats
	if err := pgxscan.Get(ctx, r.db, &stats, q); err != nil {
		return nil, fmt.Errorf("postgres: document stats: %w", err)
	}
	return &stats, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
