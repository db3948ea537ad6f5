package appstate

import (
	"context"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/compozy/docrag/engine/assistant"
	"github.com/compozy/docrag/engine/chat"
	"github.com/compozy/docrag/engine/infra/monitoring"
	"github.com/compozy/docrag/engine/rag"
	appconfig "github.com/compozy/docrag/pkg/config"
)

type contextKey string

const (
	stateKey contextKey = "app_state"
)

// ExtensionKey is a distinct type for keys stored in State.Extensions.
type ExtensionKey string

const (
	extensionHealthChecksKey ExtensionKey = "health.checks"
)

// HealthCheck probes one backing service.
type HealthCheck func(ctx context.Context) error

type BaseDeps struct {
	Config    *appconfig.Config
	RAG       *rag.Service
	Chat      *chat.Service
	Assistant *assistant.Service
}

func NewBaseDeps(
	cfg *appconfig.Config,
	ragService *rag.Service,
	chatService *chat.Service,
	assistantService *assistant.Service,
) BaseDeps {
	return BaseDeps{
		Config:    cfg,
		RAG:       ragService,
		Chat:      chatService,
		Assistant: assistantService,
	}
}

type State struct {
	BaseDeps
	Streaming  *monitoring.StreamingMetrics
	mu         sync.RWMutex
	Extensions map[ExtensionKey]any
}

func NewState(deps BaseDeps, streaming *monitoring.StreamingMetrics) (*State, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("app config is required")
	}
	if deps.RAG == nil {
		return nil, fmt.Errorf("rag service is required")
	}
	return &State{
		BaseDeps:   deps,
		Streaming:  streaming,
		Extensions: make(map[ExtensionKey]any),
	}, nil
}

func WithState(ctx context.Context, state *State) context.Context {
	return context.WithValue(ctx, stateKey, state)
}

func GetState(ctx context.Context) (*State, error) {
	state, ok := ctx.Value(stateKey).(*State)
	if !ok {
		return nil, fmt.Errorf("app state not found in context")
	}
	return state, nil
}

// AddHealthCheck registers a named probe reported by the health endpoint.
func (s *State) AddHealthCheck(name string, check HealthCheck) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Extensions == nil {
		s.Extensions = make(map[ExtensionKey]any)
	}
	checks, _ := s.Extensions[extensionHealthChecksKey].(map[string]HealthCheck)
	if checks == nil {
		checks = make(map[string]HealthCheck)
	}
	checks[name] = check
	s.Extensions[extensionHealthChecksKey] = checks
}

// HealthChecks returns a copy of the registered probes.
func (s *State) HealthChecks() map[string]HealthCheck {
	s.mu.RLock()
	defer s.mu.RUnlock()
	checks, _ := s.Extensions[extensionHealthChecksKey].(map[string]HealthCheck)
	out := make(map[string]HealthCheck, len(checks))
	for name, check := range checks {
		out[name] = check
	}
	return out
}

func StateMiddleware(state *State) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithState(c.Request.Context(), state)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
