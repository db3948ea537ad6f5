package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/docrag/engine/document"
)

func TestDocumentRepo(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	seed := func(t *testing.T) *DocumentRepo {
		t.Helper()
		repo := NewDocumentRepo(newMigratedStore(t).DB())
		require.NoError(t, repo.Create(ctx, document.NewRecord("a", "a.md", 2, 100, "first", base)))
		require.NoError(t, repo.Create(ctx, document.NewRecord("b", "b.pdf", 5, 900, "", base.Add(time.Hour))))
		require.NoError(t, repo.Create(ctx, document.NewRecord("c", "c.md", 1, 50, "", base.Add(2*time.Hour))))
		return repo
	}

	t.Run("Should round trip a record", func(t *testing.T) {
		repo := seed(t)
		got, err := repo.Get(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, "a.md", got.FileName)
		assert.Equal(t, 2, got.ChunkCount)
		assert.Equal(t, int64(100), got.FileSizeBytes)
		assert.Equal(t, "md", got.FileType)
		assert.Equal(t, "first", got.Description)
		assert.True(t, got.Active)
		assert.True(t, base.Equal(got.UploadedAt))
	})

	t.Run("Should reject duplicate ids", func(t *testing.T) {
		repo := seed(t)
		err := repo.Create(ctx, document.NewRecord("a", "other.txt", 0, 1, "", base))
		assert.ErrorIs(t, err, document.ErrAlreadyExists)
	})

	t.Run("Should list active records newest first", func(t *testing.T) {
		repo := seed(t)
		got, err := repo.ListActive(ctx)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []string{"c", "b", "a"}, []string{got[0].ID, got[1].ID, got[2].ID})
	})

	t.Run("Should hide soft deleted records from listings but not from Get", func(t *testing.T) {
		repo := seed(t)
		deletedAt := base.Add(24 * time.Hour)
		require.NoError(t, repo.SoftDelete(ctx, "b", deletedAt))

		got, err := repo.ListActive(ctx)
		require.NoError(t, err)
		assert.Len(t, got, 2)

		rec, err := repo.Get(ctx, "b")
		require.NoError(t, err)
		assert.False(t, rec.Active)
		assert.True(t, deletedAt.Equal(rec.UpdatedAt))

		exists, err := repo.Exists(ctx, "b")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Should treat repeated soft delete as a no-op", func(t *testing.T) {
		repo := seed(t)
		first := base.Add(24 * time.Hour)
		require.NoError(t, repo.SoftDelete(ctx, "a", first))
		require.NoError(t, repo.SoftDelete(ctx, "a", first.Add(time.Hour)))
		rec, err := repo.Get(ctx, "a")
		require.NoError(t, err)
		assert.True(t, first.Equal(rec.UpdatedAt))
	})

	t.Run("Should report unknown ids", func(t *testing.T) {
		repo := seed(t)
		assert.ErrorIs(t, repo.SoftDelete(ctx, "zzz", base), document.ErrNotFound)
		_, err := repo.Get(ctx, "zzz")
		assert.ErrorIs(t, err, document.ErrNotFound)
	})

	t.Run("Should filter by file type and upload time", func(t *testing.T) {
		repo := seed(t)
		md, err := repo.ListByFileType(ctx, "md")
		require.NoError(t, err)
		require.Len(t, md, 2)
		assert.Equal(t, "c", md[0].ID)

		recent, err := repo.ListUploadedAfter(ctx, base.Add(30*time.Minute))
		require.NoError(t, err)
		require.Len(t, recent, 2)
		assert.Equal(t, "c", recent[0].ID)
		assert.Equal(t, "b", recent[1].ID)
	})

	t.Run("Should aggregate stats over active records", func(t *testing.T) {
		repo := seed(t)
		require.NoError(t, repo.SoftDelete(ctx, "b", base.Add(time.Hour)))
		stats, err := repo.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.ActiveDocuments)
		assert.Equal(t, int64(3), stats.TotalChunks)
	})

	t.Run("Should return zero stats for an empty store", func(t *testing.T) {
		repo := NewDocumentRepo(newMigratedStore(t).DB())
		stats, err := repo.Stats(ctx)
		require.NoError(t, err)
		assert.Zero(t, stats.ActiveDocuments)
		assert.Zero(t, stats.TotalChunks)
	})
}
