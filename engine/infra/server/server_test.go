package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/docrag/engine/infra/server/appstate"
	"github.com/compozy/docrag/engine/infra/server/middleware/size"
	"github.com/compozy/docrag/engine/infra/server/router/routertest"
	appconfig "github.com/compozy/docrag/pkg/config"
	"github.com/compozy/docrag/pkg/logger"
)

func localConfig(t *testing.T) *appconfig.Config {
	t.Helper()
	cfg := appconfig.Default()
	cfg.Metadata.Driver = "sqlite"
	cfg.SQLite.Path = filepath.Join(t.TempDir(), "docrag.db")
	cfg.Vector.Provider = "memory"
	cfg.Vector.Dimension = 32
	cfg.Embedder.Provider = "hash"
	cfg.Embedder.Model = "hash"
	cfg.Embedder.Dimension = 32
	cfg.LLM.Provider = "mock"
	cfg.LLM.Model = "echo"
	cfg.LLM.RAGModel = ""
	cfg.Memory.Driver = "memory"
	return cfg
}

func testContext() context.Context {
	return logger.ContextWithLogger(context.Background(), logger.NewForTests())
}

func TestSetupServices(t *testing.T) {
	t.Run("Should wire every service on local backends", func(t *testing.T) {
		ctx := testContext()
		services, err := SetupServices(ctx, localConfig(t), nil)
		require.NoError(t, err)
		defer services.Close()
		state := services.State
		require.NotNil(t, state.RAG)
		require.NotNil(t, state.Chat)
		require.NotNil(t, state.Assistant)
		assert.Contains(t, state.HealthChecks(), "metadata")
		assert.NotContains(t, state.HealthChecks(), "redis")
		assert.NoError(t, state.HealthChecks()["metadata"](ctx))
	})

	t.Run("Should reject an embedder that does not match the vector dimension", func(t *testing.T) {
		cfg := localConfig(t)
		cfg.Embedder.Dimension = 16
		_, err := SetupServices(testContext(), cfg, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "dimension")
	})

	t.Run("Should require a redis connection for redis chat memory", func(t *testing.T) {
		cfg := localConfig(t)
		cfg.Memory.Driver = "redis"
		cfg.Redis.URL = "redis://127.0.0.1:1/0"
		cfg.Redis.DialTimeout = 50 * time.Millisecond
		cfg.Redis.PingTimeout = 50 * time.Millisecond
		_, err := SetupServices(testContext(), cfg, nil)
		assert.Error(t, err)
	})
}

func TestVectorConfig(t *testing.T) {
	t.Run("Should reuse the postgres connection for pgvector", func(t *testing.T) {
		cfg := appconfig.Default()
		cfg.Database.ConnString = "postgres://u:p@db:5432/docrag"
		out := vectorConfig(cfg)
		assert.Equal(t, "postgres://u:p@db:5432/docrag", out.DSN)
		assert.Equal(t, "document_embeddings", out.Table)
	})

	t.Run("Should build a redis url from host settings", func(t *testing.T) {
		cfg := appconfig.Default()
		cfg.Vector.Provider = "redis"
		cfg.Redis.Host = "cache"
		cfg.Redis.DB = 2
		assert.Equal(t, "redis://cache:6379/2", vectorConfig(cfg).DSN)
	})

	t.Run("Should keep an explicit dsn", func(t *testing.T) {
		cfg := appconfig.Default()
		cfg.Vector.Provider = "qdrant"
		cfg.Vector.DSN = " http://qdrant:6333 "
		assert.Equal(t, "http://qdrant:6333", vectorConfig(cfg).DSN)
	})
}

func TestHealthHandler(t *testing.T) {
	t.Run("Should report healthy components", func(t *testing.T) {
		state := routertest.NewTestAppState(t)
		state.AddHealthCheck("metadata", func(context.Context) error { return nil })
		r := routertest.NewRouter(state, "/api/v1", func(g *gin.RouterGroup) {
			g.GET("/health", CreateHealthHandler(healthCheckTimeout))
		})
		w := routertest.Do(t, r, http.MethodGet, "/api/v1/health", nil)
		require.Equal(t, http.StatusOK, w.Code)
		body := routertest.DecodeJSON(t, w)
		assert.Equal(t, "healthy", body["status"])
		components := body["components"].(map[string]any)
		assert.Equal(t, "healthy", components["metadata"].(map[string]any)["status"])
	})

	t.Run("Should answer 503 when a component fails", func(t *testing.T) {
		state := routertest.NewTestAppState(t)
		state.AddHealthCheck("redis", func(context.Context) error { return errors.New("connection refused") })
		r := routertest.NewRouter(state, "/api/v1", func(g *gin.RouterGroup) {
			g.GET("/health", CreateHealthHandler(healthCheckTimeout))
		})
		w := routertest.Do(t, r, http.MethodGet, "/api/v1/health", nil)
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		body := routertest.DecodeJSON(t, w)
		assert.Equal(t, "unhealthy", body["status"])
		redis := body["components"].(map[string]any)["redis"].(map[string]any)
		assert.Equal(t, "connection refused", redis["error"])
	})
}

func TestRegisterRoutes(t *testing.T) {
	t.Run("Should mount the api groups under the base path", func(t *testing.T) {
		gin.SetMode(gin.TestMode)
		state := routertest.NewTestAppState(t)
		r := gin.New()
		r.Use(func(c *gin.Context) {
			c.Request = c.Request.WithContext(testContext())
			c.Next()
		})
		r.Use(appstate.StateMiddleware(state))
		require.NoError(t, RegisterRoutes(testContext(), r, state))
		paths := map[string]bool{}
		for _, route := range r.Routes() {
			paths[route.Method+" "+route.Path] = true
		}
		assert.True(t, paths["GET /api/v1/health"])
		assert.True(t, paths["POST /api/v1/rag/ingest"])
		assert.True(t, paths["GET /api/v1/rag/documents/:document_id"])
		assert.True(t, paths["POST /api/v1/chat/:session_id"])
		assert.True(t, paths["POST /api/v1/stream/:template"])

		w := routertest.Do(t, r, http.MethodGet, "/api/v1/rag/stats", nil)
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestCORSMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	newEngine := func(origins []string) *gin.Engine {
		r := gin.New()
		r.Use(CORSMiddleware(origins))
		r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
		return r
	}

	t.Run("Should echo an allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", http.NoBody)
		req.Header.Set("Origin", "http://app.local")
		w := httptest.NewRecorder()
		newEngine([]string{"http://app.local"}).ServeHTTP(w, req)
		assert.Equal(t, "http://app.local", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Should allow any origin with a wildcard", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", http.NoBody)
		req.Header.Set("Origin", "http://elsewhere.local")
		w := httptest.NewRecorder()
		newEngine([]string{"*"}).ServeHTTP(w, req)
		assert.Equal(t, "http://elsewhere.local", w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("Should not echo unknown origins and short-circuit preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/ping", http.NoBody)
		req.Header.Set("Origin", "http://evil.local")
		w := httptest.NewRecorder()
		newEngine([]string{"http://app.local"}).ServeHTTP(w, req)
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestBodySizeLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(size.BodySizeLimiter(8))
	r.POST("/echo", func(c *gin.Context) {
		data, err := c.GetRawData()
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		c.String(http.StatusOK, string(data))
	})

	t.Run("Should pass small bodies through", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("tiny"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "tiny", w.Body.String())
	})

	t.Run("Should reject a declared oversized body with a problem", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader("far too large for the limit"))
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
		assert.Contains(t, w.Body.String(), "PAYLOAD_TOO_LARGE")
	})
}

func TestFriendlyHost(t *testing.T) {
	t.Run("Should map wildcard hosts to localhost", func(t *testing.T) {
		assert.Equal(t, "localhost", friendlyHost("0.0.0.0"))
		assert.Equal(t, "localhost", friendlyHost(""))
		assert.Equal(t, "api.internal", friendlyHost("api.internal"))
	})
}
