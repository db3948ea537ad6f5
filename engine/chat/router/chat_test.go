package chatrouter

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/docrag/engine/infra/server/router/routertest"
)

func setup(t *testing.T) *gin.Engine {
	t.Helper()
	return routertest.NewRouter(routertest.NewTestAppState(t), "/api/v1", Register)
}

func TestChatRoutes(t *testing.T) {
	t.Run("Should reply and keep history per session", func(t *testing.T) {
		r := setup(t)
		w := routertest.Do(t, r, http.MethodPost, "/api/v1/chat/s1", MessageRequest{Message: "My name is Kim"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		body := routertest.DecodeJSON(t, w)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "s1", body["sessionId"])
		assert.Equal(t, "default", body["persona"])
		assert.Equal(t, "Mock response for: My name is Kim", body["reply"])

		w = routertest.Do(t, r, http.MethodGet, "/api/v1/chat/s1/history", nil)
		require.Equal(t, http.StatusOK, w.Code)
		body = routertest.DecodeJSON(t, w)
		assert.EqualValues(t, 2, body["count"])
		msgs := body["messages"].([]any)
		assert.Equal(t, "user", msgs[0].(map[string]any)["role"])
		assert.Equal(t, "assistant", msgs[1].(map[string]any)["role"])

		w = routertest.Do(t, r, http.MethodGet, "/api/v1/chat/other/history", nil)
		assert.EqualValues(t, 0, routertest.DecodeJSON(t, w)["count"])
	})

	t.Run("Should stream a reply and remember it", func(t *testing.T) {
		r := setup(t)
		w := routertest.Do(t, r, http.MethodPost, "/api/v1/chat/s2/stream", MessageRequest{Message: "hello there"})
		require.Equal(t, http.StatusOK, w.Code)
		events := routertest.ParseEvents(t, w.Body.String())
		require.GreaterOrEqual(t, len(events), 2)
		var text strings.Builder
		for _, ev := range events[:len(events)-1] {
			text.WriteString(ev.Data["text"].(string))
		}
		assert.Equal(t, "Mock response for: hello there", text.String())
		assert.Equal(t, "done", events[len(events)-1].Name)

		w = routertest.Do(t, r, http.MethodGet, "/api/v1/chat/s2/history", nil)
		assert.EqualValues(t, 2, routertest.DecodeJSON(t, w)["count"])
	})

	t.Run("Should clear a session", func(t *testing.T) {
		r := setup(t)
		routertest.Do(t, r, http.MethodPost, "/api/v1/chat/s3", MessageRequest{Message: "hi"})
		w := routertest.Do(t, r, http.MethodDelete, "/api/v1/chat/s3", nil)
		require.Equal(t, http.StatusOK, w.Code)
		w = routertest.Do(t, r, http.MethodGet, "/api/v1/chat/s3/history", nil)
		assert.EqualValues(t, 0, routertest.DecodeJSON(t, w)["count"])
	})

	t.Run("Should validate messages and personas", func(t *testing.T) {
		r := setup(t)
		w := routertest.Do(t, r, http.MethodPost, "/api/v1/chat/s4", MessageRequest{Message: " "})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		w = routertest.Do(t, r, http.MethodPost, "/api/v1/chat/s4", MessageRequest{Message: "hi", Persona: "pirate"})
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "s4", routertest.DecodeJSON(t, w)["sessionId"])
	})

	t.Run("Should list personas", func(t *testing.T) {
		r := setup(t)
		w := routertest.Do(t, r, http.MethodGet, "/api/v1/chat/personas", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, routertest.DecodeJSON(t, w)["personas"])
	})
}
