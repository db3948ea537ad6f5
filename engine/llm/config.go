package llm

import (
	"strings"

	appconfig "github.com/compozy/docrag/pkg/config"
)

// Provider identifies the chat model backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderGoogleAI  Provider = "googleai"
	ProviderAnthropic Provider = "anthropic"
	ProviderOllama    Provider = "ollama"
	ProviderMock      Provider = "mock"
)

// Config describes one chat model.
type Config struct {
	Provider    Provider
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
}

// ChatConfig returns the model used for chat and assistant templates.
func ChatConfig(cfg *appconfig.LLMConfig) *Config {
	return &Config{
		Provider:    Provider(strings.TrimSpace(cfg.Provider)),
		Model:       cfg.Model,
		APIKey:      cfg.APIKey.Value(),
		BaseURL:     cfg.BaseURL,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
	}
}

// AnswerConfig returns the model used for retrieval-augmented answers. It reuses
// the chat model when no dedicated one is configured.
func AnswerConfig(cfg *appconfig.LLMConfig) *Config {
	out := ChatConfig(cfg)
	if model := strings.TrimSpace(cfg.RAGModel); model != "" {
		out.Model = model
	}
	if cfg.RAGTemperature > 0 {
		out.Temperature = cfg.RAGTemperature
	}
	return out
}
