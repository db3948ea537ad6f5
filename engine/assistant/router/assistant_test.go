package assistantrouter

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/docrag/engine/assistant"
	"github.com/compozy/docrag/engine/infra/server/router/routertest"
)

func setup(t *testing.T) *gin.Engine {
	t.Helper()
	return routertest.NewRouter(routertest.NewTestAppState(t), "/api/v1", Register)
}

func TestAssistantRoutes(t *testing.T) {
	t.Run("Should list the templates", func(t *testing.T) {
		r := setup(t)
		w := routertest.Do(t, r, http.MethodGet, "/api/v1/assistant/templates", nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := routertest.DecodeJSON(t, w)
		assert.EqualValues(t, len(assistant.Builtin), body["count"])
	})

	t.Run("Should run a template", func(t *testing.T) {
		r := setup(t)
		w := routertest.Do(t, r, http.MethodPost, "/api/v1/assistant/translate", RunRequest{Params: map[string]any{
			"sourceLang": "Korean",
			"targetLang": "English",
			"text":       "hello",
		}})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := routertest.DecodeJSON(t, w)
		assert.Equal(t, "translate", body["template"])
		assert.Equal(t, "Mock response for: Translate the following text from Korean to English: hello", body["result"])
	})

	t.Run("Should report unknown templates and missing params", func(t *testing.T) {
		r := setup(t)
		w := routertest.Do(t, r, http.MethodPost, "/api/v1/assistant/poem", RunRequest{})
		assert.Equal(t, http.StatusNotFound, w.Code)
		w = routertest.Do(t, r, http.MethodPost, "/api/v1/assistant/sentiment", RunRequest{})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "sentiment", routertest.DecodeJSON(t, w)["template"])
	})

	t.Run("Should stream a template", func(t *testing.T) {
		r := setup(t)
		w := routertest.Do(t, r, http.MethodPost, "/api/v1/stream/blog_post", RunRequest{Params: map[string]any{
			"topic": "Go iterators",
		}})
		require.Equal(t, http.StatusOK, w.Code)
		events := routertest.ParseEvents(t, w.Body.String())
		require.GreaterOrEqual(t, len(events), 2)
		var text strings.Builder
		for _, ev := range events[:len(events)-1] {
			assert.Equal(t, "chunk", ev.Name)
			text.WriteString(ev.Data["text"].(string))
		}
		assert.True(t, strings.HasPrefix(text.String(), "Mock response for: Write a blog post about: Go iterators"))
		last := events[len(events)-1]
		assert.Equal(t, "done", last.Name)
		assert.Equal(t, "blog_post", last.Data["template"])
	})
}
