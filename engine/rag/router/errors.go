package ragrouter

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/compozy/docrag/engine/core"
	"github.com/compozy/docrag/engine/infra/server/router"
	"github.com/compozy/docrag/engine/rag"
	"github.com/compozy/docrag/pkg/logger"
)

// respondRAGError maps pipeline errors onto problem responses. extras carries
// request context such as documentId or question.
func respondRAGError(c *gin.Context, err error, extras map[string]any) {
	if extras == nil {
		extras = map[string]any{}
	}
	var validation *rag.ValidationError
	switch {
	case errors.As(err, &validation):
		extras["field"] = validation.Field
		router.RespondProblemWithExtras(c, http.StatusBadRequest, router.ErrValidationCode, validation.Error(), extras)
	case errors.Is(err, rag.ErrDuplicateDocument):
		router.RespondProblemWithExtras(c, http.StatusConflict, router.ErrConflictCode, err.Error(), extras)
	case errors.Is(err, rag.ErrNotFound):
		router.RespondProblemWithExtras(c, http.StatusNotFound, router.ErrNotFoundCode, err.Error(), extras)
	case errors.Is(err, rag.ErrParse):
		router.RespondProblemWithExtras(c, http.StatusInternalServerError, router.ErrParseCode, err.Error(), extras)
	case errors.Is(err, rag.ErrEmbedding):
		router.RespondProblemWithExtras(c, http.StatusBadGateway, router.ErrEmbeddingCode, core.RedactError(err), extras)
	case errors.Is(err, rag.ErrGeneration):
		router.RespondProblemWithExtras(c, http.StatusBadGateway, router.ErrGenerationCode, core.RedactError(err), extras)
	default:
		logger.FromContext(c.Request.Context()).Error("RAG request failed", "path", c.FullPath(), "error", err)
		router.RespondProblemWithExtras(
			c,
			http.StatusInternalServerError,
			router.ErrInternalCode,
			"an unexpected error occurred",
			extras,
		)
	}
}

func streamErrorMessage(err error) string {
	if errors.Is(err, rag.ErrGeneration) {
		return "answer generation failed"
	}
	return "stream failed"
}
