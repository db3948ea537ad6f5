package routertest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/compozy/docrag/engine/assistant"
	"github.com/compozy/docrag/engine/chat"
	"github.com/compozy/docrag/engine/infra/server/appstate"
	"github.com/compozy/docrag/engine/infra/sqlite"
	"github.com/compozy/docrag/engine/knowledge/chunk"
	"github.com/compozy/docrag/engine/knowledge/embedder"
	"github.com/compozy/docrag/engine/knowledge/parser"
	"github.com/compozy/docrag/engine/knowledge/vectordb"
	"github.com/compozy/docrag/engine/llm"
	"github.com/compozy/docrag/engine/memory"
	"github.com/compozy/docrag/engine/rag"
	appconfig "github.com/compozy/docrag/pkg/config"
	"github.com/compozy/docrag/pkg/logger"
	"github.com/compozy/docrag/pkg/tplengine"
)

// Dimension is the vector size used by the test service graph.
const Dimension = 64

type options struct {
	generator llm.Generator
	settings  func(*rag.Settings)
}

// Option customizes NewTestAppState.
type Option func(*options)

// WithGenerator replaces the offline echo model.
func WithGenerator(gen llm.Generator) Option {
	return func(o *options) { o.generator = gen }
}

// WithSettings adjusts the retrieval policy.
func WithSettings(fn func(*rag.Settings)) Option {
	return func(o *options) { o.settings = fn }
}

// NewTestAppState builds every service on local backends: a sqlite file in
// t.TempDir, the in-memory vector store, the hashing embedder and in-process
// chat memory.
func NewTestAppState(t *testing.T, opts ...Option) *appstate.State {
	t.Helper()
	ctx := context.Background()
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.generator == nil {
		gen, err := llm.New(ctx, &llm.Config{Provider: llm.ProviderMock, Model: "echo"})
		require.NoError(t, err)
		o.generator = gen
	}

	meta, err := sqlite.NewStore(ctx, &sqlite.Config{
		Path:        filepath.Join(t.TempDir(), "docrag.db"),
		BusyTimeout: time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = meta.Close(ctx) })
	require.NoError(t, sqlite.ApplyMigrations(ctx, meta.DB()))

	store, err := vectordb.New(ctx, &vectordb.Config{ID: "test", Provider: vectordb.ProviderMemory, Dimension: Dimension})
	require.NoError(t, err)
	emb, err := embedder.New(ctx, &embedder.Config{
		ID:        "test",
		Provider:  embedder.ProviderHash,
		Model:     "hash",
		Dimension: Dimension,
		BatchSize: 8,
	})
	require.NoError(t, err)
	chunker, err := chunk.NewProcessor(chunk.Settings{Strategy: chunk.StrategyWindow, Size: 300, Overlap: 30})
	require.NoError(t, err)

	prompts := tplengine.NewEngine()
	settings := rag.DefaultSettings(Dimension)
	if o.settings != nil {
		o.settings(&settings)
	}
	ragService, err := rag.NewService(rag.Deps{
		Parser:    parser.New(),
		Chunker:   chunker,
		Embedder:  emb,
		Store:     store,
		Documents: sqlite.NewDocumentRepo(meta.DB()),
		Generator: o.generator,
		Prompts:   prompts,
	}, settings)
	require.NoError(t, err)
	chatService, err := chat.NewService(o.generator, memory.NewInMemoryStore(memory.Options{}), prompts)
	require.NoError(t, err)
	assistantService, err := assistant.NewService(o.generator, prompts)
	require.NoError(t, err)

	cfg := appconfig.Default()
	cfg.Vector.Dimension = Dimension
	cfg.Server.MaxUploadBytes = 1 << 20
	state, err := appstate.NewState(appstate.NewBaseDeps(cfg, ragService, chatService, assistantService), nil)
	require.NoError(t, err)
	return state
}

// NewRouter returns a gin engine in test mode with the state middleware
// installed and the given routes registered under base.
func NewRouter(state *appstate.State, base string, register ...func(*gin.RouterGroup)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		ctx := logger.ContextWithLogger(c.Request.Context(), logger.NewForTests())
		c.Request = c.Request.WithContext(appconfig.ContextWithConfig(ctx, state.Config))
		c.Next()
	})
	r.Use(appstate.StateMiddleware(state))
	group := r.Group(base)
	for _, fn := range register {
		fn(group)
	}
	return r
}

// Do performs a request with an optional JSON body.
func Do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// DecodeJSON unmarshals a response body into a generic map.
func DecodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// Event is one parsed server-sent event.
type Event struct {
	ID   string
	Name string
	Data map[string]any
}

// ParseEvents splits an SSE body into events with JSON data.
func ParseEvents(t *testing.T, body string) []Event {
	t.Helper()
	var events []Event
	for _, block := range bytes.Split([]byte(body), []byte("\n\n")) {
		block = bytes.TrimSpace(block)
		if len(block) == 0 || block[0] == ':' {
			continue
		}
		var ev Event
		for _, line := range bytes.Split(block, []byte("\n")) {
			key, value, _ := bytes.Cut(line, []byte(":"))
			value = bytes.TrimPrefix(value, []byte(" "))
			switch string(key) {
			case "id":
				ev.ID = string(value)
			case "event":
				ev.Name = string(value)
			case "data":
				require.NoError(t, json.Unmarshal(value, &ev.Data), string(value))
			}
		}
		events = append(events, ev)
	}
	return events
}
