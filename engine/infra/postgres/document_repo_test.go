package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/docrag/engine/document"
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, *DocumentRepo) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return mockPool, NewDocumentRepo(mockPool)
}

func documentRows(mockPool pgxmock.PgxPoolIface, recs ...*document.Record) *pgxmock.Rows {
	rows := mockPool.NewRows(documentColumns)
	for _, rec := range recs {
		rows.AddRow(
			rec.ID,
			rec.FileName,
			rec.ChunkCount,
			rec.FileSizeBytes,
			rec.FileType,
			rec.Description,
			rec.Active,
			rec.UploadedAt,
			rec.UpdatedAt,
		)
	}
	return rows
}

func TestDocumentRepo_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := document.NewRecord("guide-1", "guide.pdf", 3, 2048, "", now)

	t.Run("Should insert every column", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		mockPool.ExpectExec("INSERT INTO documents").
			WithArgs(rec.ID, rec.FileName, rec.ChunkCount, rec.FileSizeBytes, "pdf", "", true, now, now).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))
		require.NoError(t, repo.Create(ctx, rec))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should map unique violations to ErrAlreadyExists", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		mockPool.ExpectExec("INSERT INTO documents").
			WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
				pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
			WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
		err := repo.Create(ctx, rec)
		assert.ErrorIs(t, err, document.ErrAlreadyExists)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestDocumentRepo_Get(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	t.Run("Should return the record in any state", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		rec := document.NewRecord("old-1", "old.txt", 1, 10, "", now)
		rec.Active = false
		mockPool.ExpectQuery(regexp.QuoteMeta("FROM documents WHERE id = $1")).
			WithArgs("old-1").
			WillReturnRows(documentRows(mockPool, rec))
		got, err := repo.Get(ctx, "old-1")
		require.NoError(t, err)
		assert.Equal(t, "old.txt", got.FileName)
		assert.False(t, got.Active)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should return ErrNotFound when no row exists", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		mockPool.ExpectQuery(regexp.QuoteMeta("FROM documents WHERE id = $1")).
			WithArgs("missing").
			WillReturnError(pgx.ErrNoRows)
		_, err := repo.Get(ctx, "missing")
		assert.ErrorIs(t, err, document.ErrNotFound)
	})
}

func TestDocumentRepo_List(t *testing.T) {
	ctx := context.Background()
	newer := document.NewRecord("b", "b.md", 2, 20, "", time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC))
	older := document.NewRecord("a", "a.md", 1, 10, "", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC))

	t.Run("Should list active records newest first", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		mockPool.ExpectQuery(regexp.QuoteMeta("WHERE active = $1 ORDER BY uploaded_at DESC, id ASC")).
			WithArgs(true).
			WillReturnRows(documentRows(mockPool, newer, older))
		got, err := repo.ListActive(ctx)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "b", got[0].ID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should return an empty slice when nothing is active", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		mockPool.ExpectQuery("SELECT (.+) FROM documents").
			WithArgs(true).
			WillReturnRows(documentRows(mockPool))
		got, err := repo.ListActive(ctx)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("Should filter by file type", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		mockPool.ExpectQuery(regexp.QuoteMeta("WHERE active = $1 AND file_type = $2")).
			WithArgs(true, "md").
			WillReturnRows(documentRows(mockPool, older))
		got, err := repo.ListByFileType(ctx, "md")
		require.NoError(t, err)
		assert.Len(t, got, 1)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should filter by upload time", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		cutoff := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
		mockPool.ExpectQuery(regexp.QuoteMeta("WHERE active = $1 AND uploaded_at > $2")).
			WithArgs(true, cutoff).
			WillReturnRows(documentRows(mockPool, newer))
		got, err := repo.ListUploadedAfter(ctx, cutoff)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "b", got[0].ID)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestDocumentRepo_SoftDelete(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	updateSQL := regexp.QuoteMeta("UPDATE documents SET active = $1, updated_at = $2 WHERE id = $3 AND active")
	existsSQL := regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM documents WHERE id = $1)")

	t.Run("Should deactivate an active record", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		mockPool.ExpectExec(updateSQL).
			WithArgs(false, at, "doc-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))
		require.NoError(t, repo.SoftDelete(ctx, "doc-1", at))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should succeed without changes when already inactive", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		mockPool.ExpectExec(updateSQL).
			WithArgs(false, at, "doc-1").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mockPool.ExpectQuery(existsSQL).
			WithArgs("doc-1").
			WillReturnRows(mockPool.NewRows([]string{"exists"}).AddRow(true))
		require.NoError(t, repo.SoftDelete(ctx, "doc-1", at))
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should return ErrNotFound for unknown ids", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		mockPool.ExpectExec(updateSQL).
			WithArgs(false, at, "nope").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))
		mockPool.ExpectQuery(existsSQL).
			WithArgs("nope").
			WillReturnRows(mockPool.NewRows([]string{"exists"}).AddRow(false))
		err := repo.SoftDelete(ctx, "nope", at)
		assert.ErrorIs(t, err, document.ErrNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("Should surface database failures", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		mockPool.ExpectExec(updateSQL).
			WithArgs(false, at, "doc-1").
			WillReturnError(errors.New("connection reset"))
		err := repo.SoftDelete(ctx, "doc-1", at)
		assert.ErrorContains(t, err, "connection reset")
	})
}

func TestDocumentRepo_Stats(t *testing.T) {
	t.Run("Should aggregate active documents and chunks", func(t *testing.T) {
		mockPool, repo := newMockRepo(t)
		mockPool.ExpectQuery("SELECT COUNT\\(\\*\\) AS active_documents").
			WillReturnRows(mockPool.NewRows([]string{"active_documents", "total_chunks"}).AddRow(int64(3), int64(17)))
		stats, err := repo.Stats(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.ActiveDocuments)
		assert.Equal(t, int64(17), stats.TotalChunks)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}
