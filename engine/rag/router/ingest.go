package ragrouter

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/compozy/docrag/engine/infra/server/router"
	"github.com/compozy/docrag/engine/rag"
)

const formFileField = "file"

// ingestDocument handles POST /rag/ingest.
func ingestDocument(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	limit := state.Config.Server.MaxUploadBytes
	header, err := c.FormFile(formFileField)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondTooLarge(c, limit)
			return
		}
		router.RespondProblemWithExtras(c, http.StatusBadRequest, router.ErrValidationCode,
			"a file is required in the \"file\" form field", map[string]any{"field": formFileField})
		return
	}
	if limit > 0 && header.Size > limit {
		respondTooLarge(c, limit)
		return
	}
	content, err := readUpload(header)
	if err != nil {
		router.RespondProblemWithCode(c, http.StatusBadRequest, router.ErrBadRequestCode, err.Error())
		return
	}
	documentID := strings.TrimSpace(c.PostForm("documentId"))
	rec, err := state.RAG.Ingest(c.Request.Context(), rag.IngestInput{
		Content:     content,
		FileName:    header.Filename,
		FileSize:    header.Size,
		DocumentID:  documentID,
		Description: c.PostForm("description"),
	})
	if err != nil {
		respondRAGError(c, err, map[string]any{"documentId": documentID, "fileName": header.Filename})
		return
	}
	router.RespondSuccess(c, http.StatusCreated, gin.H{
		"message":    fmt.Sprintf("Document %q ingested into %d chunks", rec.FileName, rec.ChunkCount),
		"documentId": rec.ID,
		"fileName":   rec.FileName,
		"chunkCount": rec.ChunkCount,
		"document":   toDocumentDTO(rec),
	})
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer file.Close()
	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	return content, nil
}

func respondTooLarge(c *gin.Context, limit int64) {
	router.RespondProblemWithExtras(c, http.StatusRequestEntityTooLarge, router.ErrPayloadTooLargeCode,
		fmt.Sprintf("file exceeds the upload limit of %d bytes", limit), map[string]any{"maxBytes": limit})
}
