package assistantrouter

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/compozy/docrag/engine/assistant"
	"github.com/compozy/docrag/engine/core"
	"github.com/compozy/docrag/engine/infra/server/appstate"
	"github.com/compozy/docrag/engine/infra/server/router"
	"github.com/compozy/docrag/pkg/logger"
)

// RunRequest carries the template parameters.
type RunRequest struct {
	Params map[string]any `json:"params"`
}

func assistantState(c *gin.Context) *appstate.State {
	state := router.GetAppState(c)
	if state == nil {
		return nil
	}
	if state.Assistant == nil {
		router.RespondProblemWithCode(c, http.StatusServiceUnavailable, router.ErrServiceUnavailableCode,
			"assistant templates are not enabled")
		return nil
	}
	return state
}

func respondAssistantError(c *gin.Context, err error, template string) {
	extras := map[string]any{"template": template}
	switch {
	case errors.Is(err, assistant.ErrUnknownTemplate):
		router.RespondProblemWithExtras(c, http.StatusNotFound, router.ErrNotFoundCode, err.Error(), extras)
	case errors.Is(err, assistant.ErrInvalidParams):
		router.RespondProblemWithExtras(c, http.StatusBadRequest, router.ErrValidationCode, err.Error(), extras)
	case errors.Is(err, assistant.ErrGeneration):
		router.RespondProblemWithExtras(c, http.StatusBadGateway, router.ErrGenerationCode, core.RedactError(err), extras)
	default:
		logger.FromContext(c.Request.Context()).Error("Assistant request failed", "template", template, "error", err)
		router.RespondProblemWithExtras(c, http.StatusInternalServerError, router.ErrInternalCode,
			"an unexpected error occurred", extras)
	}
}

func bindRun(c *gin.Context) (string, *RunRequest, bool) {
	name := router.GetURLParam(c, "template")
	if name == "" {
		return "", nil, false
	}
	var req RunRequest
	if !router.BindJSON(c, &req) {
		return "", nil, false
	}
	return name, &req, true
}

// listTemplates handles GET /assistant/templates.
func listTemplates(c *gin.Context) {
	state := assistantState(c)
	if state == nil {
		return
	}
	templates := state.Assistant.Templates()
	router.RespondSuccess(c, http.StatusOK, gin.H{"templates": templates, "count": len(templates)})
}

// runTemplate handles POST /assistant/:template.
func runTemplate(c *gin.Context) {
	state := assistantState(c)
	if state == nil {
		return
	}
	name, req, ok := bindRun(c)
	if !ok {
		return
	}
	result, err := state.Assistant.Run(c.Request.Context(), name, req.Params)
	if err != nil {
		respondAssistantError(c, err, name)
		return
	}
	router.RespondSuccess(c, http.StatusOK, gin.H{"template": name, "result": result})
}

// streamTemplate handles POST /stream/:template.
func streamTemplate(c *gin.Context) {
	state := assistantState(c)
	if state == nil {
		return
	}
	name, req, ok := bindRun(c)
	if !ok {
		return
	}
	fragments, err := state.Assistant.Stream(c.Request.Context(), name, req.Params)
	if err != nil {
		respondAssistantError(c, err, name)
		return
	}
	router.StreamText(c, &router.TextStream{
		Kind:      "assistant",
		Subject:   name,
		Metrics:   state.Streaming,
		Fragments: fragments,
		Done: func() any {
			return gin.H{"success": true, "template": name}
		},
		ErrorMessage: func(error) string { return "generation failed" },
	})
}
