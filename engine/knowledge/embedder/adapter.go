package embedder

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/compozy/docrag/pkg/logger"
)

// Adapter wraps a langchaingo embedder implementation and augments error reporting.
type Adapter struct {
	id        string
	provider  Provider
	model     string
	dimension int
	batchSize int
	impl      embeddings.Embedder
	// queries memoizes question embeddings; nil when disabled.
	queries *lru.Cache[[sha256.Size]byte, []float32]
}

var _ Embedder = (*Adapter)(nil)

var (
	errMissingID        = errors.New("embedder id is required")
	errMissingProvider  = errors.New("embedder provider is required")
	errMissingModel     = errors.New("embedder model is required")
	errInvalidDimension = errors.New("embedder dimension must be greater than zero")
	errInvalidBatchSize = errors.New("embedder batch size must be greater than zero")
	// ErrDimensionMismatch is returned when the provider answers with vectors of the wrong size.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// New constructs a provider-backed embedder adapter.
func New(ctx context.Context, cfg *Config) (*Adapter, error) {
	if cfg == nil {
		return nil, errors.New("embedder config is required")
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	options := []embeddings.Option{
		embeddings.WithBatchSize(cfg.BatchSize),
		embeddings.WithStripNewLines(cfg.StripNewLines),
	}
	impl, err := buildProviderEmbedder(ctx, cfg, options...)
	if err != nil {
		return nil, err
	}
	return newAdapter(cfg, impl)
}

// Wrap constructs an adapter around an existing langchaingo embedder.
func Wrap(cfg *Config, impl embeddings.Embedder) (*Adapter, error) {
	if cfg == nil {
		return nil, errors.New("embedder config is required")
	}
	if impl == nil {
		return nil, fmt.Errorf("embedder %q: implementation is required", cfg.ID)
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return newAdapter(cfg, impl)
}

func newAdapter(cfg *Config, impl embeddings.Embedder) (*Adapter, error) {
	a := &Adapter{
		id:        cfg.ID,
		provider:  cfg.Provider,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		batchSize: cfg.BatchSize,
		impl:      impl,
	}
	if cfg.QueryCacheSize > 0 {
		cache, err := lru.New[[sha256.Size]byte, []float32](cfg.QueryCacheSize)
		if err != nil {
			return nil, fmt.Errorf("embedder %q: query cache: %w", cfg.ID, err)
		}
		a.queries = cache
	}
	return a, nil
}

// Dimension returns the configured vector dimension.
func (a *Adapter) Dimension() int {
	return a.dimension
}

// BatchSize returns the configured batch size.
func (a *Adapter) BatchSize() int {
	return a.batchSize
}

// EmbedDocuments embeds texts in order, one vector per text.
func (a *Adapter) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	start := time.Now()
	vectors, err := a.impl.EmbedDocuments(ctx, texts)
	if err != nil {
		recordEmbedError(ctx, string(a.provider), a.model, categorizeError(err))
		return nil, a.withContext(err)
	}
	if len(vectors) != len(texts) {
		return nil, a.withContext(fmt.Errorf("received %d embeddings for %d texts", len(vectors), len(texts)))
	}
	for i := range vectors {
		if err := a.checkDimension(vectors[i]); err != nil {
			return nil, err
		}
	}
	recordEmbedCall(ctx, string(a.provider), a.model, len(texts), time.Since(start))
	logger.FromContext(ctx).Debug(
		"Embedded documents",
		"embedder", a.id,
		"provider", a.provider,
		"count", len(texts),
		"duration", time.Since(start),
	)
	return vectors, nil
}

// EmbedQuery embeds a single query string. Repeated questions are served from
// the query cache when one is configured; callers must not modify the result.
func (a *Adapter) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	var key [sha256.Size]byte
	if a.queries != nil {
		key = sha256.Sum256([]byte(a.model + "\x00" + text))
		if vector, ok := a.queries.Get(key); ok {
			return vector, nil
		}
	}
	start := time.Now()
	vector, err := a.impl.EmbedQuery(ctx, text)
	if err != nil {
		recordEmbedError(ctx, string(a.provider), a.model, categorizeError(err))
		return nil, a.withContext(err)
	}
	if err := a.checkDimension(vector); err != nil {
		return nil, err
	}
	recordEmbedCall(ctx, string(a.provider), a.model, 1, time.Since(start))
	if a.queries != nil {
		a.queries.Add(key, vector)
	}
	return vector, nil
}

func (a *Adapter) checkDimension(vec []float32) error {
	if len(vec) != a.dimension {
		return a.withContext(fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(vec), a.dimension))
	}
	return nil
}

func (a *Adapter) withContext(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("embedder %q: %w", a.id, err)
}

// categorizeError inspects the error text to approximate a standard error bucket.
func categorizeError(err error) string {
	if err == nil {
		return errorTypeServer
	}
	lower := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return errorTypeTimeout
	case strings.Contains(lower, "rate limit"), strings.Contains(lower, "429"):
		return errorTypeRateLimit
	case strings.Contains(lower, "unauthorized"), strings.Contains(lower, "forbidden"), strings.Contains(lower, "api key"):
		return errorTypeAuth
	case strings.Contains(lower, "invalid"),
		strings.Contains(lower, "bad request"),
		strings.Contains(lower, "422"),
		strings.Contains(lower, "400"):
		return errorTypeInvalidInput
	default:
		return errorTypeServer
	}
}

func validateConfig(cfg *Config) error {
	if strings.TrimSpace(cfg.ID) == "" {
		return errMissingID
	}
	if strings.TrimSpace(string(cfg.Provider)) == "" {
		return fmt.Errorf("embedder %q: %w", cfg.ID, errMissingProvider)
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return fmt.Errorf("embedder %q: %w", cfg.ID, errMissingModel)
	}
	if cfg.Dimension <= 0 {
		return fmt.Errorf("embedder %q: %w", cfg.ID, errInvalidDimension)
	}
	if cfg.BatchSize <= 0 {
		return fmt.Errorf("embedder %q: %w", cfg.ID, errInvalidBatchSize)
	}
	return nil
}

func buildProviderEmbedder(
	ctx context.Context,
	cfg *Config,
	options ...embeddings.Option,
) (embeddings.Embedder, error) {
	var (
		client embeddings.EmbedderClient
		err    error
	)
	switch cfg.Provider {
	case ProviderOpenAI:
		client, err = newOpenAIClient(cfg)
	case ProviderGoogleAI:
		client, err = newGoogleAIClient(ctx, cfg)
	case ProviderOllama:
		client, err = newOllamaClient(cfg)
	case ProviderHash:
		client = NewHashClient(cfg.Dimension)
	default:
		return nil, fmt.Errorf("embedder %q: provider %q is not supported", cfg.ID, cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("embedder %q: failed to initialize %s client: %w", cfg.ID, cfg.Provider, err)
	}
	impl, err := embeddings.NewEmbedder(client, options...)
	if err != nil {
		return nil, fmt.Errorf("embedder %q: failed to construct %s embedder: %w", cfg.ID, cfg.Provider, err)
	}
	return impl, nil
}

func newOpenAIClient(cfg *Config) (embeddings.EmbedderClient, error) {
	opts := []openai.Option{
		openai.WithEmbeddingModel(cfg.Model),
	}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	return openai.New(opts...)
}

func newGoogleAIClient(ctx context.Context, cfg *Config) (embeddings.EmbedderClient, error) {
	opts := []googleai.Option{
		googleai.WithDefaultEmbeddingModel(cfg.Model),
	}
	if cfg.APIKey != "" {
		opts = append(opts, googleai.WithAPIKey(cfg.APIKey))
	}
	return googleai.New(ctx, opts...)
}

func newOllamaClient(cfg *Config) (embeddings.EmbedderClient, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	return ollama.New(opts...)
}
