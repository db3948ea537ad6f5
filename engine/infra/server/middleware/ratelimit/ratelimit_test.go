package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ulule/limiter/v3"

	appconfig "github.com/compozy/docrag/pkg/config"
)

func newEngine(t *testing.T, cfg *Config, store limiter.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(cfg, store).Middleware())
	ok := func(c *gin.Context) { c.Status(http.StatusOK) }
	r.GET("/health", ok)
	r.GET("/api/v1/rag/documents", ok)
	r.POST("/api/v1/rag/ask", ok)
	r.POST("/api/v1/chat/:sessionId", ok)
	return r
}

func send(r http.Handler, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, http.NoBody)
	req.RemoteAddr = "10.0.0.7:51000"
	r.ServeHTTP(w, req)
	return w
}

func testConfig(apiLimit, generateLimit int64) *Config {
	cfg := appconfig.Default()
	cfg.RateLimit.Limit = apiLimit
	cfg.RateLimit.GenerateLimit = generateLimit
	cfg.RateLimit.Period = time.Minute
	return ConfigFrom(cfg)
}

func TestConfigFrom(t *testing.T) {
	t.Run("Should derive generate prefixes from the base path", func(t *testing.T) {
		cfg := appconfig.Default()
		cfg.Server.BasePath = "/rag-api/"
		out := ConfigFrom(cfg)
		assert.True(t, out.isGenerate("/rag-api/rag/ask"))
		assert.True(t, out.isGenerate("/rag-api/rag/ask/stream"))
		assert.True(t, out.isGenerate("/rag-api/chat/s1"))
		assert.True(t, out.isGenerate("/rag-api/stream/summary"))
		assert.False(t, out.isGenerate("/rag-api/rag/search"))
		assert.False(t, out.isGenerate("/rag-api/rag/asker"))
		assert.True(t, out.isExcluded("/health"))
		assert.False(t, out.isExcluded("/healthz"))
	})
}

func TestMiddleware(t *testing.T) {
	t.Run("Should reject once the budget is spent", func(t *testing.T) {
		r := newEngine(t, testConfig(2, 1), NewMemoryStore())
		for i := range 2 {
			w := send(r, http.MethodGet, "/api/v1/rag/documents")
			require.Equal(t, http.StatusOK, w.Code, "request %d", i)
			assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
		}
		w := send(r, http.MethodGet, "/api/v1/rag/documents")
		assert.Equal(t, http.StatusTooManyRequests, w.Code)
		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
		assert.NotEmpty(t, w.Header().Get("Retry-After"))
		assert.Contains(t, w.Body.String(), `"code":"RATE_LIMITED"`)
	})

	t.Run("Should count model calls against their own budget", func(t *testing.T) {
		r := newEngine(t, testConfig(5, 1), NewMemoryStore())
		assert.Equal(t, http.StatusOK, send(r, http.MethodPost, "/api/v1/rag/ask").Code)
		assert.Equal(t, http.StatusTooManyRequests, send(r, http.MethodPost, "/api/v1/chat/s1").Code)
		assert.Equal(t, http.StatusOK, send(r, http.MethodGet, "/api/v1/rag/documents").Code)
	})

	t.Run("Should never count excluded paths", func(t *testing.T) {
		r := newEngine(t, testConfig(1, 1), NewMemoryStore())
		for range 3 {
			w := send(r, http.MethodGet, "/health")
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Empty(t, w.Header().Get("X-RateLimit-Limit"))
		}
	})

	t.Run("Should share counters through redis", func(t *testing.T) {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		store, err := NewRedisStore(client)
		require.NoError(t, err)
		cfg := testConfig(1, 1)
		first := newEngine(t, cfg, store)
		second := newEngine(t, cfg, store)
		assert.Equal(t, http.StatusOK, send(first, http.MethodGet, "/api/v1/rag/documents").Code)
		assert.Equal(t, http.StatusTooManyRequests, send(second, http.MethodGet, "/api/v1/rag/documents").Code)
	})
}
