package embedder

import "context"

// Provider identifies the embedding backend.
type Provider string

const (
	ProviderOpenAI   Provider = "openai"
	ProviderGoogleAI Provider = "googleai"
	ProviderOllama   Provider = "ollama"
	// ProviderHash is a deterministic local embedder for development and tests.
	ProviderHash Provider = "hash"
)

// Config describes a single embedding model.
type Config struct {
	ID            string
	Provider      Provider
	Model         string
	APIKey        string
	BaseURL       string
	Dimension     int
	BatchSize     int
	StripNewLines bool
	// QueryCacheSize bounds the LRU of question embeddings; zero disables it.
	QueryCacheSize int
}

// Embedder turns text into fixed-dimension vectors.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	Dimension() int
	BatchSize() int
}
