package router

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/compozy/docrag/engine/core"
	"github.com/compozy/docrag/pkg/logger"
)

const problemContentType = "application/problem+json"

// RespondProblem writes an RFC 7807 body that also carries success=false and message.
func RespondProblem(c *gin.Context, problem *core.Problem) {
	prepared := problem.Normalize()
	if prepared.Instance == "" && c.Request != nil {
		prepared.Instance = c.Request.URL.Path
	}
	writeProblemResponse(c, prepared)
}

// RespondProblemWithCode writes a problem with a machine readable code and detail.
func RespondProblemWithCode(c *gin.Context, status int, code string, detail string) {
	RespondProblem(c, core.NewProblem(status, code, detail))
}

// RespondProblemWithExtras is RespondProblemWithCode plus context fields such as
// documentId or question.
func RespondProblemWithExtras(c *gin.Context, status int, code, detail string, extras map[string]any) {
	RespondProblem(c, core.NewProblem(status, code, detail).WithExtras(extras))
}

func writeProblemResponse(c *gin.Context, problem *core.Problem) {
	logProblem(c, problem)
	payload, err := json.Marshal(problem.Body())
	if err != nil {
		logger.FromContext(c.Request.Context()).Error("failed to marshal problem", "err", err)
		fallback := []byte(`{"success":false,"message":"Internal Server Error","status":500}`)
		c.Data(http.StatusInternalServerError, problemContentType, fallback)
		c.Abort()
		return
	}
	c.Data(problem.Status, problemContentType, payload)
	c.Abort()
}

func logProblem(c *gin.Context, problem *core.Problem) {
	log := logger.FromContext(c.Request.Context())
	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}
	fields := []any{
		"status", problem.Status,
		"title", problem.Title,
		"detail", problem.Detail,
		"route", route,
	}
	if problem.Code != "" {
		fields = append(fields, "code", problem.Code)
	}
	if requestID := c.Request.Header.Get("X-Request-ID"); requestID != "" {
		fields = append(fields, "request_id", requestID)
	}
	if problem.Status >= http.StatusInternalServerError {
		log.Error("request failed", fields...)
		return
	}
	log.Warn("request failed", fields...)
}
