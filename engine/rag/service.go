package rag

import (
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/compozy/docrag/engine/document"
	"github.com/compozy/docrag/engine/knowledge/chunk"
	"github.com/compozy/docrag/engine/knowledge/embedder"
	"github.com/compozy/docrag/engine/knowledge/parser"
	"github.com/compozy/docrag/engine/knowledge/vectordb"
	"github.com/compozy/docrag/engine/llm"
	appconfig "github.com/compozy/docrag/pkg/config"
	"github.com/compozy/docrag/pkg/tplengine"
)

// Deps are the adapters the pipeline orchestrates.
type Deps struct {
	Parser    parser.Parser
	Chunker   *chunk.Processor
	Embedder  embedder.Embedder
	Store     vectordb.Store
	Documents document.Repository
	Generator llm.Generator
	// Prompts receives the answer template; a private engine is used when nil.
	Prompts *tplengine.TemplateEngine
}

// Settings holds retrieval policy.
type Settings struct {
	VectorDimension  int
	AskMaxResults    int
	AskMinScore      float64
	SearchMaxResults int
	SearchMinScore   float64
	MaxResultsLimit  int
	ExcludeInactive  bool
	// MaxSearchResults is the vector store ceiling on one search; 0 means none.
	MaxSearchResults int
}

// SettingsFrom maps application configuration onto Settings.
func SettingsFrom(cfg *appconfig.Config) Settings {
	return Settings{
		VectorDimension:  cfg.Vector.Dimension,
		AskMaxResults:    cfg.RAG.AskMaxResults,
		AskMinScore:      cfg.RAG.AskMinScore,
		SearchMaxResults: cfg.RAG.SearchMaxResults,
		SearchMinScore:   cfg.RAG.SearchMinScore,
		MaxResultsLimit:  cfg.RAG.MaxResultsLimit,
		ExcludeInactive:  cfg.RAG.ExcludeInactive,
		MaxSearchResults: cfg.Vector.MaxTopK,
	}
}

// DefaultSettings mirrors the configuration defaults.
func DefaultSettings(dimension int) Settings {
	return Settings{
		VectorDimension:  dimension,
		AskMaxResults:    5,
		AskMinScore:      0.7,
		SearchMaxResults: 3,
		SearchMinScore:   0.7,
		MaxResultsLimit:  50,
		ExcludeInactive:  true,
		MaxSearchResults: 100,
	}
}

// Option customizes a Service.
type Option func(*Service)

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// Service runs ingestion, retrieval and answer assembly over the configured adapters.
type Service struct {
	parser    parser.Parser
	chunker   *chunk.Processor
	embedder  embedder.Embedder
	store     vectordb.Store
	documents document.Repository
	generator llm.Generator
	prompts   *tplengine.TemplateEngine
	settings  Settings
	now       func() time.Time
	tracer    trace.Tracer
}

// NewService validates the wiring, registers the answer template and returns
// a ready service.
func NewService(deps Deps, settings Settings, opts ...Option) (*Service, error) {
	switch {
	case deps.Parser == nil:
		return nil, errors.New("rag: parser is required")
	case deps.Chunker == nil:
		return nil, errors.New("rag: chunker is required")
	case deps.Embedder == nil:
		return nil, errors.New("rag: embedder is required")
	case deps.Store == nil:
		return nil, errors.New("rag: vector store is required")
	case deps.Documents == nil:
		return nil, errors.New("rag: document repository is required")
	case deps.Generator == nil:
		return nil, errors.New("rag: generator is required")
	}
	if settings.VectorDimension > 0 && deps.Embedder.Dimension() != settings.VectorDimension {
		return nil, fmt.Errorf(
			"rag: embedder dimension %d does not match vector dimension %d",
			deps.Embedder.Dimension(), settings.VectorDimension,
		)
	}
	if settings.MaxResultsLimit <= 0 {
		return nil, errors.New("rag: max results limit must be positive")
	}
	prompts := deps.Prompts
	if prompts == nil {
		prompts = tplengine.NewEngine()
	}
	if err := registerPrompts(prompts); err != nil {
		return nil, err
	}
	s := &Service{
		parser:    deps.Parser,
		chunker:   deps.Chunker,
		embedder:  deps.Embedder,
		store:     deps.Store,
		documents: deps.Documents,
		generator: deps.Generator,
		prompts:   prompts,
		settings:  settings,
		now:       time.Now,
		tracer:    otel.Tracer("docrag.rag"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Settings returns the retrieval policy in effect.
func (s *Service) Settings() Settings {
	return s.settings
}
