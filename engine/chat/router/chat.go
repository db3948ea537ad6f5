package chatrouter

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/compozy/docrag/engine/chat"
	"github.com/compozy/docrag/engine/core"
	"github.com/compozy/docrag/engine/infra/server/appstate"
	"github.com/compozy/docrag/engine/infra/server/router"
	"github.com/compozy/docrag/engine/llm"
	"github.com/compozy/docrag/pkg/logger"
)

// MessageRequest is the body of a chat turn.
type MessageRequest struct {
	Message string         `json:"message"`
	Persona string         `json:"persona,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
}

func chatState(c *gin.Context) *appstate.State {
	state := router.GetAppState(c)
	if state == nil {
		return nil
	}
	if state.Chat == nil {
		router.RespondProblemWithCode(c, http.StatusServiceUnavailable, router.ErrServiceUnavailableCode,
			"chat is not enabled")
		return nil
	}
	return state
}

func respondChatError(c *gin.Context, err error, sessionID string) {
	extras := map[string]any{"sessionId": sessionID}
	switch {
	case errors.Is(err, chat.ErrInvalidInput):
		router.RespondProblemWithExtras(c, http.StatusBadRequest, router.ErrValidationCode, err.Error(), extras)
	case errors.Is(err, chat.ErrUnknownPersona):
		router.RespondProblemWithExtras(c, http.StatusNotFound, router.ErrNotFoundCode, err.Error(), extras)
	case errors.Is(err, chat.ErrGeneration):
		router.RespondProblemWithExtras(c, http.StatusBadGateway, router.ErrGenerationCode, core.RedactError(err), extras)
	default:
		logger.FromContext(c.Request.Context()).Error("Chat request failed", "session_id", sessionID, "error", err)
		router.RespondProblemWithExtras(c, http.StatusInternalServerError, router.ErrInternalCode,
			"an unexpected error occurred", extras)
	}
}

func bindTurn(c *gin.Context) (string, *MessageRequest, bool) {
	sessionID := router.GetURLParam(c, "session_id")
	if sessionID == "" {
		return "", nil, false
	}
	var req MessageRequest
	if !router.BindJSON(c, &req) {
		return "", nil, false
	}
	return sessionID, &req, true
}

// listPersonas handles GET /chat/personas.
func listPersonas(c *gin.Context) {
	state := chatState(c)
	if state == nil {
		return
	}
	router.RespondSuccess(c, http.StatusOK, gin.H{"personas": state.Chat.Personas()})
}

// sendMessage handles POST /chat/:session_id.
func sendMessage(c *gin.Context) {
	state := chatState(c)
	if state == nil {
		return
	}
	sessionID, req, ok := bindTurn(c)
	if !ok {
		return
	}
	reply, err := state.Chat.Send(c.Request.Context(), chat.Input{
		SessionID: sessionID,
		Message:   req.Message,
		Persona:   req.Persona,
		Params:    req.Params,
	})
	if err != nil {
		respondChatError(c, err, sessionID)
		return
	}
	router.RespondSuccess(c, http.StatusOK, gin.H{
		"sessionId": reply.SessionID,
		"persona":   reply.Persona,
		"reply":     reply.Reply,
	})
}

// streamMessage handles POST /chat/:session_id/stream.
func streamMessage(c *gin.Context) {
	state := chatState(c)
	if state == nil {
		return
	}
	sessionID, req, ok := bindTurn(c)
	if !ok {
		return
	}
	stream, err := state.Chat.SendStream(c.Request.Context(), chat.Input{
		SessionID: sessionID,
		Message:   req.Message,
		Persona:   req.Persona,
		Params:    req.Params,
	})
	if err != nil {
		respondChatError(c, err, sessionID)
		return
	}
	router.StreamText(c, &router.TextStream{
		Kind:      "chat",
		Subject:   stream.SessionID,
		Metrics:   state.Streaming,
		Fragments: stream.Fragments,
		Done: func() any {
			return gin.H{"success": true, "sessionId": stream.SessionID, "persona": stream.Persona}
		},
		ErrorMessage: func(err error) string {
			if errors.Is(err, chat.ErrGeneration) {
				return "reply generation failed"
			}
			return "failed to save the conversation"
		},
	})
}

// getHistory handles GET /chat/:session_id/history.
func getHistory(c *gin.Context) {
	state := chatState(c)
	if state == nil {
		return
	}
	sessionID := router.GetURLParam(c, "session_id")
	if sessionID == "" {
		return
	}
	msgs, err := state.Chat.History(c.Request.Context(), sessionID)
	if err != nil {
		respondChatError(c, err, sessionID)
		return
	}
	if msgs == nil {
		msgs = []llm.Message{}
	}
	router.RespondSuccess(c, http.StatusOK, gin.H{
		"sessionId": sessionID,
		"messages":  msgs,
		"count":     len(msgs),
	})
}

// resetSession handles DELETE /chat/:session_id.
func resetSession(c *gin.Context) {
	state := chatState(c)
	if state == nil {
		return
	}
	sessionID := router.GetURLParam(c, "session_id")
	if sessionID == "" {
		return
	}
	if err := state.Chat.Reset(c.Request.Context(), sessionID); err != nil {
		respondChatError(c, err, sessionID)
		return
	}
	router.RespondSuccess(c, http.StatusOK, gin.H{
		"message":   fmt.Sprintf("Session %q cleared", sessionID),
		"sessionId": sessionID,
	})
}
