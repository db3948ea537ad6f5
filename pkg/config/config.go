package config

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"time"
)

// Config represents the complete configuration for the docrag service.
// It provides type-safe access to all configuration values with validation.
type Config struct {
	Server     ServerConfig     `koanf:"server"     validate:"required"`
	Database   DatabaseConfig   `koanf:"database"`
	SQLite     SQLiteConfig     `koanf:"sqlite"`
	Redis      RedisConfig      `koanf:"redis"`
	LLM        LLMConfig        `koanf:"llm"        validate:"required"`
	Embedder   EmbedderConfig   `koanf:"embedder"   validate:"required"`
	Vector     VectorConfig     `koanf:"vector"     validate:"required"`
	Metadata   MetadataConfig   `koanf:"metadata"   validate:"required"`
	RAG        RAGConfig        `koanf:"rag"        validate:"required"`
	Memory     MemoryConfig     `koanf:"memory"     validate:"required"`
	Monitoring MonitoringConfig `koanf:"monitoring"`
	RateLimit  RateLimitConfig  `koanf:"rate_limit"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Host           string        `koanf:"host"             validate:"required"        env:"SERVER_HOST"`
	Port           int           `koanf:"port"             validate:"min=1,max=65535" env:"SERVER_PORT"`
	BasePath       string        `koanf:"base_path"        validate:"required"        env:"SERVER_BASE_PATH"`
	Timeout        time.Duration `koanf:"timeout"                                     env:"SERVER_TIMEOUT"`
	MaxUploadBytes int64         `koanf:"max_upload_bytes" validate:"min=1"           env:"SERVER_MAX_UPLOAD_BYTES"`
	CORSEnabled    bool          `koanf:"cors_enabled"                                env:"SERVER_CORS_ENABLED"`
	AllowedOrigins []string      `koanf:"allowed_origins"                             env:"SERVER_CORS_ALLOWED_ORIGINS"`
}

// DatabaseConfig contains postgres connection configuration.
type DatabaseConfig struct {
	ConnString  string          `koanf:"conn_string"  env:"DB_CONN_STRING"`
	Host        string          `koanf:"host"         env:"DB_HOST"`
	Port        string          `koanf:"port"         env:"DB_PORT"`
	User        string          `koanf:"user"         env:"DB_USER"`
	Password    SensitiveString `koanf:"password"     env:"DB_PASSWORD"     sensitive:"true"`
	DBName      string          `koanf:"name"         env:"DB_NAME"`
	SSLMode     string          `koanf:"ssl_mode"     env:"DB_SSL_MODE"`
	MaxConns    int32           `koanf:"max_conns"    env:"DB_MAX_CONNS"    validate:"min=0"`
	MinConns    int32           `koanf:"min_conns"    env:"DB_MIN_CONNS"    validate:"min=0"`
	AutoMigrate bool            `koanf:"auto_migrate" env:"DB_AUTO_MIGRATE"`
}

// DSN returns the connection string, assembling it from components when needed.
func (c *DatabaseConfig) DSN() string {
	if c.ConnString != "" {
		return c.ConnString
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password.Value()),
		Host:   net.JoinHostPort(c.Host, c.Port),
		Path:   "/" + c.DBName,
	}
	if c.SSLMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(c.SSLMode)
	}
	return u.String()
}

// SQLiteConfig contains the embedded metadata database configuration.
type SQLiteConfig struct {
	Path        string        `koanf:"path"         env:"SQLITE_PATH"`
	BusyTimeout time.Duration `koanf:"busy_timeout" env:"SQLITE_BUSY_TIMEOUT"`
}

// RedisConfig contains Redis connection configuration.
type RedisConfig struct {
	URL         string          `koanf:"url"          env:"REDIS_URL"`
	Host        string          `koanf:"host"         env:"REDIS_HOST"`
	Port        string          `koanf:"port"         env:"REDIS_PORT"`
	Password    SensitiveString `koanf:"password"     env:"REDIS_PASSWORD" sensitive:"true"`
	DB          int             `koanf:"db"           env:"REDIS_DB"       validate:"min=0"`
	PoolSize    int             `koanf:"pool_size"    env:"REDIS_POOL_SIZE" validate:"min=0"`
	DialTimeout time.Duration   `koanf:"dial_timeout" env:"REDIS_DIAL_TIMEOUT"`
	PingTimeout time.Duration   `koanf:"ping_timeout" env:"REDIS_PING_TIMEOUT"`
}

// Configured reports whether enough connection details were supplied.
func (c *RedisConfig) Configured() bool {
	return c.URL != "" || c.Host != ""
}

// LLMConfig contains chat and answer generation model configuration.
type LLMConfig struct {
	Provider       string          `koanf:"provider"        validate:"oneof=openai googleai anthropic ollama mock" env:"LLM_PROVIDER"`
	Model          string          `koanf:"model"           validate:"required"                                    env:"LLM_MODEL"`
	APIKey         SensitiveString `koanf:"api_key"                                                                env:"LLM_API_KEY"         sensitive:"true"`
	BaseURL        string          `koanf:"base_url"                                                               env:"LLM_BASE_URL"`
	Temperature    float64         `koanf:"temperature"     validate:"gte=0,lte=2"                                 env:"LLM_TEMPERATURE"`
	MaxTokens      int             `koanf:"max_tokens"      validate:"min=0"                                       env:"LLM_MAX_TOKENS"`
	RAGModel       string          `koanf:"rag_model"                                                              env:"LLM_RAG_MODEL"`
	RAGTemperature float64         `koanf:"rag_temperature" validate:"gte=0,lte=2"                                 env:"LLM_RAG_TEMPERATURE"`
}

// EmbedderConfig contains embedding model configuration.
type EmbedderConfig struct {
	Provider      string          `koanf:"provider"        validate:"oneof=openai googleai ollama hash" env:"EMBEDDER_PROVIDER"`
	Model         string          `koanf:"model"           validate:"required"                          env:"EMBEDDER_MODEL"`
	APIKey        SensitiveString `koanf:"api_key"                                                      env:"EMBEDDER_API_KEY"         sensitive:"true"`
	BaseURL       string          `koanf:"base_url"                                                     env:"EMBEDDER_BASE_URL"`
	Dimension     int             `koanf:"dimension"       validate:"min=1"                             env:"EMBEDDER_DIMENSION"`
	BatchSize     int             `koanf:"batch_size"      validate:"min=1"                             env:"EMBEDDER_BATCH_SIZE"`
	StripNewLines bool            `koanf:"strip_new_lines"                                              env:"EMBEDDER_STRIP_NEW_LINES"`
	QueryCache    int             `koanf:"query_cache"     validate:"min=0"                             env:"EMBEDDER_QUERY_CACHE"`
}

// VectorConfig contains vector database configuration.
type VectorConfig struct {
	Provider    string          `koanf:"provider"     validate:"oneof=pgvector qdrant redis filesystem memory" env:"VECTOR_PROVIDER"`
	DSN         string          `koanf:"dsn"                                                                   env:"VECTOR_DSN"`
	Path        string          `koanf:"path"                                                                  env:"VECTOR_PATH"`
	Table       string          `koanf:"table"                                                                 env:"VECTOR_TABLE"`
	Collection  string          `koanf:"collection"                                                            env:"VECTOR_COLLECTION"`
	APIKey      SensitiveString `koanf:"api_key"                                                               env:"VECTOR_API_KEY"      sensitive:"true"`
	Dimension   int             `koanf:"dimension"    validate:"min=1"                                         env:"VECTOR_DIMENSION"`
	Metric      string          `koanf:"metric"       validate:"omitempty,oneof=cosine l2 ip"                  env:"VECTOR_METRIC"`
	EnsureIndex bool            `koanf:"ensure_index"                                                          env:"VECTOR_ENSURE_INDEX"`
	IndexType   string          `koanf:"index_type"   validate:"omitempty,oneof=hnsw ivfflat"                  env:"VECTOR_INDEX_TYPE"`
	MaxTopK     int             `koanf:"max_top_k"    validate:"min=0"                                         env:"VECTOR_MAX_TOP_K"`
}

// MetadataConfig selects the document metadata store driver.
type MetadataConfig struct {
	Driver string `koanf:"driver" validate:"oneof=postgres sqlite" env:"METADATA_DRIVER"`
}

// RAGConfig contains chunking and retrieval policy.
type RAGConfig struct {
	ChunkStrategy    string  `koanf:"chunk_strategy"     validate:"oneof=window recursive" env:"RAG_CHUNK_STRATEGY"`
	ChunkSize        int     `koanf:"chunk_size"         validate:"min=1"                  env:"RAG_CHUNK_SIZE"`
	ChunkOverlap     int     `koanf:"chunk_overlap"      validate:"min=0"                  env:"RAG_CHUNK_OVERLAP"`
	AskMaxResults    int     `koanf:"ask_max_results"    validate:"min=1"                  env:"RAG_ASK_MAX_RESULTS"`
	AskMinScore      float64 `koanf:"ask_min_score"      validate:"gte=0,lte=1"            env:"RAG_ASK_MIN_SCORE"`
	SearchMaxResults int     `koanf:"search_max_results" validate:"min=1"                  env:"RAG_SEARCH_MAX_RESULTS"`
	SearchMinScore   float64 `koanf:"search_min_score"   validate:"gte=0,lte=1"            env:"RAG_SEARCH_MIN_SCORE"`
	MaxResultsLimit  int     `koanf:"max_results_limit"  validate:"min=1"                  env:"RAG_MAX_RESULTS_LIMIT"`
	ExcludeInactive  bool    `koanf:"exclude_inactive"                                     env:"RAG_EXCLUDE_INACTIVE"`
}

// MemoryConfig contains conversation memory configuration.
type MemoryConfig struct {
	Driver      string        `koanf:"driver"       validate:"oneof=memory redis" env:"MEMORY_DRIVER"`
	MaxMessages int           `koanf:"max_messages" validate:"min=1"              env:"MEMORY_MAX_MESSAGES"`
	TTL         time.Duration `koanf:"ttl"                                        env:"MEMORY_TTL"`
	Prefix      string        `koanf:"prefix"                                     env:"MEMORY_PREFIX"`
}

// MonitoringConfig controls the metrics endpoint.
type MonitoringConfig struct {
	Enabled bool   `koanf:"enabled" env:"MONITORING_ENABLED"`
	Path    string `koanf:"path"    env:"MONITORING_PATH"`
}

// RateLimitConfig throttles API calls per client IP. Routes that call the
// chat model draw from the stricter generate budget.
type RateLimitConfig struct {
	Enabled       bool          `koanf:"enabled"        env:"RATE_LIMIT_ENABLED"`
	Driver        string        `koanf:"driver"         validate:"oneof=memory redis" env:"RATE_LIMIT_DRIVER"`
	Limit         int64         `koanf:"limit"          validate:"min=1"              env:"RATE_LIMIT_LIMIT"`
	GenerateLimit int64         `koanf:"generate_limit" validate:"min=1"              env:"RATE_LIMIT_GENERATE_LIMIT"`
	Period        time.Duration `koanf:"period"                                       env:"RATE_LIMIT_PERIOD"`
	ExcludedPaths []string      `koanf:"excluded_paths"                               env:"RATE_LIMIT_EXCLUDED_PATHS"`
}

// Service defines the configuration loading contract.
type Service interface {
	// Load applies defaults, the given sources, then environment variables.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	// Validate checks struct tags and cross-field rules.
	Validate(config *Config) error
	// GetSource returns which source provided a configuration key.
	GetSource(key string) SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	// Load reads configuration from the source.
	Load() (map[string]any, error)
	// Type returns the source type identifier.
	Type() SourceType
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata contains metadata about configuration sources.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// Load loads configuration from defaults and the environment.
func Load() (*Config, error) {
	service := NewService()
	return service.Load(context.Background())
}

// Default returns a Config with default values for local development.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			BasePath:       "/api/v1",
			Timeout:        60 * time.Second,
			MaxUploadBytes: 20 << 20,
			CORSEnabled:    true,
			AllowedOrigins: []string{"*"},
		},
		Database: DatabaseConfig{
			Host:        "localhost",
			Port:        "5432",
			User:        "postgres",
			Password:    SensitiveString("postgres"),
			DBName:      "docrag",
			SSLMode:     "disable",
			MaxConns:    10,
			MinConns:    1,
			AutoMigrate: true,
		},
		SQLite: SQLiteConfig{
			Path:        "./data/docrag.db",
			BusyTimeout: 5 * time.Second,
		},
		Redis: RedisConfig{
			Port:        "6379",
			PoolSize:    10,
			DialTimeout: 5 * time.Second,
			PingTimeout: 3 * time.Second,
		},
		LLM: LLMConfig{
			Provider:       "googleai",
			Model:          "gemini-2.5-flash",
			Temperature:    0.7,
			RAGModel:       "gemini-2.5-pro",
			RAGTemperature: 0.4,
		},
		Embedder: EmbedderConfig{
			Provider:      "googleai",
			Model:         "text-embedding-004",
			Dimension:     768,
			BatchSize:     32,
			StripNewLines: true,
			QueryCache:    512,
		},
		Vector: VectorConfig{
			Provider:    "pgvector",
			Table:       "document_embeddings",
			Collection:  "documents",
			Dimension:   768,
			Metric:      "cosine",
			EnsureIndex: true,
			IndexType:   "hnsw",
			MaxTopK:     100,
		},
		Metadata: MetadataConfig{Driver: "postgres"},
		RAG: RAGConfig{
			ChunkStrategy:    "window",
			ChunkSize:        300,
			ChunkOverlap:     30,
			AskMaxResults:    5,
			AskMinScore:      0.7,
			SearchMaxResults: 3,
			SearchMinScore:   0.7,
			MaxResultsLimit:  50,
			ExcludeInactive:  true,
		},
		Memory: MemoryConfig{
			Driver:      "memory",
			MaxMessages: 20,
			TTL:         time.Hour,
			Prefix:      "chat:memory:",
		},
		Monitoring: MonitoringConfig{
			Enabled: false,
			Path:    "/metrics",
		},
		RateLimit: RateLimitConfig{
			Driver:        "memory",
			Limit:         120,
			GenerateLimit: 20,
			Period:        time.Minute,
			ExcludedPaths: []string{"/health", "/metrics"},
		},
	}
}

// String renders a short description used in startup logs.
func (c *Config) String() string {
	return fmt.Sprintf(
		"server=%s:%d metadata=%s vector=%s(%d) embedder=%s/%s llm=%s/%s memory=%s",
		c.Server.Host, c.Server.Port,
		c.Metadata.Driver,
		c.Vector.Provider, c.Vector.Dimension,
		c.Embedder.Provider, c.Embedder.Model,
		c.LLM.Provider, c.LLM.Model,
		c.Memory.Driver,
	)
}
