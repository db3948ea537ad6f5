package document

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileTypeFromName(t *testing.T) {
	t.Run("Should lower-case the text after the last dot", func(t *testing.T) {
		assert.Equal(t, "pdf", FileTypeFromName("Report.PDF"))
		assert.Equal(t, "gz", FileTypeFromName("archive.tar.gz"))
		assert.Equal(t, "env", FileTypeFromName(".env"))
	})

	t.Run("Should return empty when there is no extension", func(t *testing.T) {
		assert.Equal(t, "", FileTypeFromName("README"))
		assert.Equal(t, "", FileTypeFromName("trailing."))
		assert.Equal(t, "", FileTypeFromName(""))
	})
}

func TestNewRecord(t *testing.T) {
	t.Run("Should create an active record with matching timestamps", func(t *testing.T) {
		now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.FixedZone("X", 3600))
		rec := NewRecord("notes-1", "notes.md", 4, 1200, "team notes", now)
		assert.True(t, rec.Active)
		assert.Equal(t, "md", rec.FileType)
		assert.Equal(t, time.UTC, rec.UploadedAt.Location())
		assert.Equal(t, rec.UploadedAt, rec.UpdatedAt)
	})

	t.Run("Should serialize with camelCase keys", func(t *testing.T) {
		rec := NewRecord("a", "a.txt", 1, 10, "", time.Unix(0, 0))
		raw, err := json.Marshal(rec)
		require.NoError(t, err)
		var m map[string]any
		require.NoError(t, json.Unmarshal(raw, &m))
		for _, key := range []string{"id", "fileName", "chunkCount", "fileSizeBytes", "fileType", "active", "uploadedAt", "updatedAt"} {
			assert.Contains(t, m, key)
		}
		assert.NotContains(t, m, "description")
	})
}
