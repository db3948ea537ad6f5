package ragrouter

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/compozy/docrag/engine/infra/server/router"
	"github.com/compozy/docrag/engine/rag"
)

// askQuestion handles POST /rag/ask.
func askQuestion(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	var req AskRequest
	if !router.BindJSON(c, &req) {
		return
	}
	answer, err := state.RAG.Answer(c.Request.Context(), rag.AnswerInput{
		Question:   req.Question,
		DocumentID: req.DocumentID,
	})
	if err != nil {
		respondRAGError(c, err, map[string]any{"question": req.Question, "documentId": req.DocumentID})
		return
	}
	router.RespondSuccess(c, http.StatusOK, gin.H{
		"answer":            answer.Text,
		"originalQuestion":  answer.Question,
		"documentId":        answer.DocumentID,
		"noRelevantContent": answer.NoRelevantContent,
		"contextTokens":     answer.ContextTokens,
		"sources":           sourcesOrEmpty(answer.Sources),
	})
}

// streamAnswer handles POST /rag/ask/stream. Retrieval errors are reported as
// regular problems; generation errors arrive as an error event.
func streamAnswer(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	var req AskRequest
	if !router.BindJSON(c, &req) {
		return
	}
	stream, err := state.RAG.AnswerStream(c.Request.Context(), rag.AnswerInput{
		Question:   req.Question,
		DocumentID: req.DocumentID,
	})
	if err != nil {
		respondRAGError(c, err, map[string]any{"question": req.Question, "documentId": req.DocumentID})
		return
	}
	router.StreamText(c, &router.TextStream{
		Kind:      "rag_answer",
		Subject:   stream.DocumentID,
		Metrics:   state.Streaming,
		Fragments: stream.Fragments,
		Done: func() any {
			return gin.H{
				"success":           true,
				"originalQuestion":  stream.Question,
				"documentId":        stream.DocumentID,
				"noRelevantContent": stream.NoRelevantContent,
				"sources":           sourcesOrEmpty(stream.Sources),
			}
		},
		ErrorMessage: streamErrorMessage,
	})
}

// searchDocuments handles POST /rag/search.
func searchDocuments(c *gin.Context) {
	state := router.GetAppState(c)
	if state == nil {
		return
	}
	var req SearchRequest
	if !router.BindJSON(c, &req) {
		return
	}
	settings := state.RAG.Settings()
	q := rag.Query{
		Question:   req.Question,
		MaxResults: settings.SearchMaxResults,
		MinScore:   settings.SearchMinScore,
		DocumentID: req.DocumentID,
	}
	if req.MaxResults != nil {
		q.MaxResults = *req.MaxResults
	}
	if req.MinScore != nil {
		q.MinScore = *req.MinScore
	}
	result, err := state.RAG.Search(c.Request.Context(), q)
	if err != nil {
		respondRAGError(c, err, map[string]any{"question": req.Question, "documentId": req.DocumentID})
		return
	}
	router.RespondSuccess(c, http.StatusOK, gin.H{
		"question":        result.Question,
		"relevantContent": result.RelevantContent,
		"resultCount":     len(result.Results),
		"minScore":        result.MinScore,
		"documentId":      result.DocumentID,
		"results":         sourcesOrEmpty(result.Results),
	})
}
