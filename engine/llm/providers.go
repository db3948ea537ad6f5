package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/googleai"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

var (
	errMissingProvider = errors.New("llm provider is required")
	errMissingModel    = errors.New("llm model is required")
)

func validateConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("llm config is required")
	}
	if strings.TrimSpace(string(cfg.Provider)) == "" {
		return errMissingProvider
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return fmt.Errorf("llm %s: %w", cfg.Provider, errMissingModel)
	}
	if cfg.Temperature < 0 {
		return fmt.Errorf("llm %s: temperature must be non-negative", cfg.Provider)
	}
	return nil
}

func newModel(ctx context.Context, cfg *Config) (llms.Model, error) {
	switch cfg.Provider {
	case ProviderOpenAI:
		return newOpenAIModel(cfg)
	case ProviderGoogleAI:
		return newGoogleAIModel(ctx, cfg)
	case ProviderAnthropic:
		return newAnthropicModel(cfg)
	case ProviderOllama:
		return newOllamaModel(cfg)
	case ProviderMock:
		return NewEchoModel(cfg.Model), nil
	default:
		return nil, fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

func newOpenAIModel(cfg *Config) (llms.Model, error) {
	opts := []openai.Option{openai.WithModel(cfg.Model)}
	if cfg.APIKey != "" {
		opts = append(opts, openai.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
	}
	return openai.New(opts...)
}

func newGoogleAIModel(ctx context.Context, cfg *Config) (llms.Model, error) {
	if cfg.BaseURL != "" {
		return nil, fmt.Errorf("googleai does not support custom API URL")
	}
	opts := []googleai.Option{googleai.WithDefaultModel(cfg.Model)}
	if cfg.APIKey != "" {
		opts = append(opts, googleai.WithAPIKey(cfg.APIKey))
	}
	return googleai.New(ctx, opts...)
}

func newAnthropicModel(cfg *Config) (llms.Model, error) {
	opts := []anthropic.Option{anthropic.WithModel(cfg.Model)}
	if cfg.APIKey != "" {
		opts = append(opts, anthropic.WithToken(cfg.APIKey))
	}
	if cfg.BaseURL != "" {
		opts = append(opts, anthropic.WithBaseURL(cfg.BaseURL))
	}
	return anthropic.New(opts...)
}

func newOllamaModel(cfg *Config) (llms.Model, error) {
	opts := []ollama.Option{ollama.WithModel(cfg.Model)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	return ollama.New(opts...)
}
