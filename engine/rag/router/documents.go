package ragrouter

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/compozy/docrag/engine/infra/server/router"
	"github.com/compozy/docrag/engine/rag"
)

// listDocuments handles GET /rag/documents.
func listDocuments(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	filter := rag.ListFilter{FileType: c.Query("fileType")}
	if raw := strings.TrimSpace(c.Query("uploadedAfter")); raw != "" {
		after, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			router.RespondProblemWithExtras(c, http.StatusBadRequest, router.ErrValidationCode,
				fmt.Sprintf("uploadedAfter must be an RFC3339 timestamp, got %q", raw),
				map[string]any{"field": "uploadedAfter"})
			return
		}
		filter.UploadedAfter = &after
	}
	records, err := state.RAG.ListDocuments(c.Request.Context(), filter)
	if err != nil {
		respondRAGError(c, err, nil)
		return
	}
	router.RespondSuccess(c, http.StatusOK, gin.H{
		"documents":  toDocumentDTOs(records),
		"totalCount": len(records),
	})
}

// getDocument handles GET /rag/documents/:document_id.
func getDocument(c *gin.Context) {
	documentID := router.GetURLParam(c, "document_id")
	if documentID == "" {
		return
	}
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	rec, err := state.RAG.GetDocument(c.Request.Context(), documentID)
	if err != nil {
		respondRAGError(c, err, map[string]any{"documentId": documentID})
		return
	}
	router.RespondSuccess(c, http.StatusOK, gin.H{"document": toDocumentDTO(rec)})
}

// deleteDocument handles DELETE /rag/documents/:document_id.
func deleteDocument(c *gin.Context) {
	documentID := router.GetURLParam(c, "document_id")
	if documentID == "" {
		return
	}
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	if err := state.RAG.DeleteDocument(c.Request.Context(), documentID); err != nil {
		respondRAGError(c, err, map[string]any{"documentId": documentID})
		return
	}
	router.RespondSuccess(c, http.StatusOK, gin.H{
		"message":    fmt.Sprintf("Document %q deactivated", documentID),
		"documentId": documentID,
	})
}

// documentStats handles GET /rag/stats.
func documentStats(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	stats, err := state.RAG.Stats(c.Request.Context())
	if err != nil {
		respondRAGError(c, err, nil)
		return
	}
	router.RespondSuccess(c, http.StatusOK, gin.H{
		"activeDocuments": stats.ActiveDocuments,
		"totalChunks":     stats.TotalChunks,
	})
}
