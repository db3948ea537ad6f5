package document

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when no record exists for an id.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists is returned when a record with the same id was created before,
	// whether or not it is still active.
	ErrAlreadyExists = errors.New("document already exists")
)

// Record is the metadata row persisted once a document's chunks are stored.
type Record struct {
	ID            string    `json:"id"                    db:"id"`
	FileName      string    `json:"fileName"              db:"file_name"`
	ChunkCount    int       `json:"chunkCount"            db:"chunk_count"`
	FileSizeBytes int64     `json:"fileSizeBytes"         db:"file_size_bytes"`
	FileType      string    `json:"fileType"              db:"file_type"`
	Description   string    `json:"description,omitempty" db:"description"`
	Active        bool      `json:"active"                db:"active"`
	UploadedAt    time.Time `json:"uploadedAt"            db:"uploaded_at"`
	UpdatedAt     time.Time `json:"updatedAt"             db:"updated_at"`
}

// Stats summarizes the active documents.
type Stats struct {
	ActiveDocuments int64 `json:"activeDocuments" db:"active_documents"`
	TotalChunks     int64 `json:"totalChunks"     db:"total_chunks"`
}

// Repository persists document metadata. Records are never hard-deleted.
type Repository interface {
	// Create inserts a new active record; ErrAlreadyExists when the id was used before.
	Create(ctx context.Context, rec *Record) error
	// Exists reports whether any record, active or not, uses the id.
	Exists(ctx context.Context, id string) (bool, error)
	// Get returns the record in any state.
	Get(ctx context.Context, id string) (*Record, error)
	// ListActive returns active records, newest upload first.
	ListActive(ctx context.Context) ([]*Record, error)
	// ListByFileType returns active records with the given file type, newest first.
	ListByFileType(ctx context.Context, fileType string) ([]*Record, error)
	// ListUploadedAfter returns active records uploaded strictly after t, newest first.
	ListUploadedAfter(ctx context.Context, t time.Time) ([]*Record, error)
	// SoftDelete marks the record inactive. Deleting an inactive record is a no-op.
	SoftDelete(ctx context.Context, id string, at time.Time) error
	// Stats aggregates counts over active records.
	Stats(ctx context.Context) (*Stats, error)
}

// FileTypeFromName returns the lower-cased extension without the dot, or ""
// when the name has none.
func FileTypeFromName(name string) string {
	ext := path.Ext(strings.TrimSpace(name))
	if ext == "" || ext == "." {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// NewRecord builds an active record stamped with the given time.
func NewRecord(id, fileName string, chunkCount int, sizeBytes int64, description string, now time.Time) *Record {
	now = now.UTC()
	return &Record{
		ID:            id,
		FileName:      fileName,
		ChunkCount:    chunkCount,
		FileSizeBytes: sizeBytes,
		FileType:      FileTypeFromName(fileName),
		Description:   description,
		Active:        true,
		UploadedAt:    now,
		UpdatedAt:     now,
	}
}
