package config

import (
	"errors"
	"fmt"
)

// validateCustom performs cross-field validation beyond struct tags.
func validateCustom(cfg *Config) error {
	var errs []error
	if cfg.RAG.ChunkOverlap >= cfg.RAG.ChunkSize {
		errs = append(errs, fmt.Errorf("rag.chunk_overlap (%d) must be smaller than rag.chunk_size (%d)",
			cfg.RAG.ChunkOverlap, cfg.RAG.ChunkSize))
	}
	if cfg.Embedder.Dimension != cfg.Vector.Dimension {
		errs = append(errs, fmt.Errorf("embedder.dimension (%d) must match vector.dimension (%d)",
			cfg.Embedder.Dimension, cfg.Vector.Dimension))
	}
	if cfg.RAG.AskMaxResults > cfg.RAG.MaxResultsLimit || cfg.RAG.SearchMaxResults > cfg.RAG.MaxResultsLimit {
		errs = append(errs, fmt.Errorf("default max results must not exceed rag.max_results_limit (%d)",
			cfg.RAG.MaxResultsLimit))
	}
	if cfg.Vector.MaxTopK > 0 && cfg.Vector.MaxTopK < 2*cfg.RAG.MaxResultsLimit {
		errs = append(errs, fmt.Errorf("vector.max_top_k (%d) must be 0 or at least twice rag.max_results_limit (%d)",
			cfg.Vector.MaxTopK, cfg.RAG.MaxResultsLimit))
	}
	if cfg.Metadata.Driver == "postgres" {
		db := &cfg.Database
		if db.ConnString == "" && (db.Host == "" || db.Port == "" || db.User == "" || db.DBName == "") {
			errs = append(errs, errors.New("database configuration incomplete: either conn_string or individual components required"))
		}
	}
	if cfg.Metadata.Driver == "sqlite" && cfg.SQLite.Path == "" {
		errs = append(errs, errors.New("sqlite.path is required when metadata.driver is sqlite"))
	}
	switch cfg.Vector.Provider {
	case "qdrant":
		if cfg.Vector.DSN == "" {
			errs = append(errs, errors.New("vector.dsn is required for qdrant"))
		}
	case "filesystem":
		if cfg.Vector.Path == "" {
			errs = append(errs, errors.New("vector.path is required for the filesystem vector store"))
		}
	case "redis":
		if cfg.Vector.DSN == "" && !cfg.Redis.Configured() {
			errs = append(errs, errors.New("vector.dsn or redis connection settings are required for the redis vector store"))
		}
	}
	if cfg.Memory.Driver == "redis" && !cfg.Redis.Configured() {
		errs = append(errs, errors.New("redis.url or redis.host is required when memory.driver is redis"))
	}
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.Period <= 0 {
			errs = append(errs, errors.New("rate_limit.period must be positive"))
		}
		if cfg.RateLimit.Driver == "redis" && !cfg.Redis.Configured() {
			errs = append(errs, errors.New("redis.url or redis.host is required when rate_limit.driver is redis"))
		}
	}
	if cfg.Memory.TTL < 0 {
		errs = append(errs, errors.New("memory.ttl must not be negative"))
	}
	return errors.Join(errs...)
}
