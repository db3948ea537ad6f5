package core

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProblem(t *testing.T) {
	t.Run("Should fill defaults and carry success and message", func(t *testing.T) {
		body := NewProblem(http.StatusBadRequest, "VALIDATION_ERROR", "question must not be empty").Normalize().Body()
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "question must not be empty", body["message"])
		assert.Equal(t, "question must not be empty", body["details"])
		assert.Equal(t, "Bad Request", body["error"])
		assert.Equal(t, "VALIDATION_ERROR", body["code"])
		assert.Equal(t, "about:blank", body["type"])
	})

	t.Run("Should fall back to the title as message", func(t *testing.T) {
		body := (&Problem{Status: http.StatusNotFound}).Normalize().Body()
		assert.Equal(t, "Not Found", body["message"])
		assert.NotContains(t, body, "details")
		assert.NotContains(t, body, "code")
	})

	t.Run("Should turn a nil problem into a 500", func(t *testing.T) {
		var p *Problem
		p = p.Normalize()
		assert.Equal(t, http.StatusInternalServerError, p.Status)
		assert.Equal(t, "Internal Server Error", p.Message())
	})

	t.Run("Should merge extras without overriding envelope keys", func(t *testing.T) {
		p := NewProblem(http.StatusConflict, "DUPLICATE_DOCUMENT", "exists").
			WithExtras(map[string]any{"documentId": "doc-1", "success": true, "code": "OTHER"})
		body := p.Normalize().Body()
		assert.Equal(t, "DUPLICATE_DOCUMENT", body["code"])
		assert.Equal(t, "doc-1", body["documentId"])
		assert.Equal(t, false, body["success"])
	})
}
