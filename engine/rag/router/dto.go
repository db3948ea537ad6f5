package ragrouter

import (
	"time"

	"github.com/compozy/docrag/engine/document"
	"github.com/compozy/docrag/engine/rag"
)

// AskRequest is the body of /rag/ask and /rag/ask/stream.
type AskRequest struct {
	Question   string `json:"question"`
	DocumentID string `json:"documentId,omitempty"`
}

// SearchRequest is the body of /rag/search. Omitted limits fall back to the
// configured search defaults.
type SearchRequest struct {
	Question   string   `json:"question"`
	MaxResults *int     `json:"maxResults,omitempty"`
	MinScore   *float64 `json:"minScore,omitempty"`
	DocumentID string   `json:"documentId,omitempty"`
}

// DocumentDTO is the transport shape of a document record.
type DocumentDTO struct {
	ID            string    `json:"documentId"`
	FileName      string    `json:"fileName"`
	FileType      string    `json:"fileType"`
	FileSizeBytes int64     `json:"fileSizeBytes"`
	ChunkCount    int       `json:"chunkCount"`
	Description   string    `json:"description,omitempty"`
	Active        bool      `json:"active"`
	UploadedAt    time.Time `json:"uploadedAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func toDocumentDTO(rec *document.Record) DocumentDTO {
	return DocumentDTO{
		ID:            rec.ID,
		FileName:      rec.FileName,
		FileType:      rec.FileType,
		FileSizeBytes: rec.FileSizeBytes,
		ChunkCount:    rec.ChunkCount,
		Description:   rec.Description,
		Active:        rec.Active,
		UploadedAt:    rec.UploadedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

func toDocumentDTOs(records []*document.Record) []DocumentDTO {
	out := make([]DocumentDTO, 0, len(records))
	for _, rec := range records {
		out = append(out, toDocumentDTO(rec))
	}
	return out
}

func sourcesOrEmpty(results []rag.Result) []rag.Result {
	if results == nil {
		return []rag.Result{}
	}
	return results
}
