package vectordb

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	errMissingID        = errors.New("vector_db id is required")
	errMissingProvider  = errors.New("vector_db provider is required")
	errMissingDSN       = errors.New("vector_db dsn is required")
	errMissingPath      = errors.New("vector_db path is required")
	errInvalidDimension = errors.New("vector_db dimension must be greater than zero")
	errInvalidMetric    = errors.New("vector_db metric is not supported")
)

// New instantiates a vector store backed by the requested provider.
func New(ctx context.Context, cfg *Config) (Store, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	store, err := instantiateStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return Instrument(store, cfg.Provider), nil
}

func instantiateStore(ctx context.Context, cfg *Config) (Store, error) {
	switch cfg.Provider {
	case ProviderPGVector:
		return newPGStore(ctx, cfg)
	case ProviderQdrant:
		return newQdrantStore(ctx, cfg)
	case ProviderRedis:
		return newRedisStore(ctx, cfg)
	case ProviderFilesystem:
		return newFileStore(ctx, cfg)
	case ProviderMemory:
		return newMemoryStore(cfg), nil
	default:
		return nil, fmt.Errorf("vector_db %q: provider %q is not supported", cfg.ID, cfg.Provider)
	}
}

func validateConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("vector_db config is required")
	}
	if strings.TrimSpace(cfg.ID) == "" {
		return errMissingID
	}
	if strings.TrimSpace(string(cfg.Provider)) == "" {
		return fmt.Errorf("vector_db %q: %w", cfg.ID, errMissingProvider)
	}
	cfg.DSN = strings.TrimSpace(cfg.DSN)
	cfg.Path = strings.TrimSpace(cfg.Path)
	switch cfg.Provider {
	case ProviderPGVector, ProviderQdrant, ProviderRedis:
		if cfg.DSN == "" {
			return fmt.Errorf("vector_db %q: %w", cfg.ID, errMissingDSN)
		}
	case ProviderFilesystem:
		if cfg.Path == "" {
			return fmt.Errorf("vector_db %q: %w", cfg.ID, errMissingPath)
		}
	}
	if cfg.Dimension <= 0 {
		return fmt.Errorf("vector_db %q: %w", cfg.ID, errInvalidDimension)
	}
	if cfg.MaxTopK < 0 {
		return fmt.Errorf("vector_db %q: max_top_k must be non-negative", cfg.ID)
	}
	switch normalizeMetric(cfg.Metric) {
	case MetricCosine, MetricL2, MetricIP:
	default:
		return fmt.Errorf("vector_db %q: %w: %q", cfg.ID, errInvalidMetric, cfg.Metric)
	}
	return nil
}

func normalizeMetric(m Metric) Metric {
	trimmed := Metric(strings.ToLower(strings.TrimSpace(string(m))))
	if trimmed == "" {
		return MetricCosine
	}
	return trimmed
}

// capTopK applies the default and the configured ceiling to a requested result count.
func capTopK(topK, maxTopK int) int {
	if topK <= 0 {
		topK = defaultTopK
	}
	if maxTopK > 0 && topK > maxTopK {
		topK = maxTopK
	}
	return topK
}
