package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/sqlscan"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/compozy/docrag/engine/document"
)

const documentColumns = `id, file_name, chunk_count, file_size_bytes, file_type, description, active, uploaded_at, updated_at`

// DocumentRepo implements document.Repository on top of a SQLite *sql.DB.
type DocumentRepo struct{ db *sql.DB }

var _ document.Repository = (*DocumentRepo)(nil)

// NewDocumentRepo creates a new SQLite-backed document repository.
func NewDocumentRepo(db *sql.DB) *DocumentRepo { return &DocumentRepo{db: db} }

func (r *DocumentRepo) Create(ctx context.Context, rec *document.Record) error {
	if rec == nil {
		return fmt.Errorf("sqlite: document record is required")
	}
	const q = `INSERT INTO documents (` + documentColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(
		ctx,
		q,
		rec.ID,
		rec.FileName,
		rec.ChunkCount,
		rec.FileSizeBytes,
		rec.FileType,
		rec.Description,
		rec.Active,
		rec.UploadedAt.UTC(),
		rec.UpdatedAt.UTC(),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("%w: %s", document.ErrAlreadyExists, rec.ID)
		}
		return fmt.Errorf("sqlite: create document %q: %w", rec.ID, err)
	}
	return nil
}

func (r *DocumentRepo) Exists(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM documents WHERE id = ?)`, id).
		Scan(&exists); err != nil {
		return false, fmt.Errorf("sqlite: check document %q: %w", id, err)
	}
	return exists, nil
}

func (r *DocumentRepo) Get(ctx context.Context, id string) (*document.Record, error) {
	var rec document.Record
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = ?`
	if err := sqlscan.Get(ctx, r.db, &rec, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", document.ErrNotFound, id)
		}
		return nil, fmt.Errorf("sqlite: get document %q: %w", id, err)
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
	sb := squirrel.Select(documentColumns).From("documents").Where("active = 1")
	if extra != nil {
		sb = sb.Where(extra)
	}
	q, args, err := sb.OrderBy("uploaded_at DESC", "id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqlite: build list query: %w", err)
	}
	out := make([]*document.Record, 0)
	if err := sqlscan.Select(ctx, r.db, &out, q, args...); err != nil {
		return nil, fmt.Errorf("sqlite: list documents: %w", err)
	}
	return out, nil
}

func (r *DocumentRepo) SoftDelete(ctx context.Context, id string, at time.Time) error {
	const q = `UPDATE documents SET active = 0, updated_at = ? WHERE id = ? AND active = 1`
	res, err := r.db.ExecContext(ctx, q, at.UTC(), id)
	if err != nil {
		return fmt.Errorf("sqlite: soft delete %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: rows affected (soft delete): %w", err)
	}
	if n > 0 {
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
FROM documents WHERE active = 1`
	var stats document.Stats
	if err := sqlscan.Get(ctx, r.db, &stats, q); err != nil {
		return nil, fmt.Errorf("sqlite: document stats: %w", err)
	}
	return &stats, nil
}

func isConstraintViolation(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	default:
		return false
	}
}
