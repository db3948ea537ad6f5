package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/compozy/docrag/engine/assistant"
	"github.com/compozy/docrag/engine/chat"
	"github.com/compozy/docrag/engine/document"
	"github.com/compozy/docrag/engine/infra/cache"
	"github.com/compozy/docrag/engine/infra/monitoring"
	"github.com/compozy/docrag/engine/infra/postgres"
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

const (
	metadataDriverPostgres = "postgres"
	memoryDriverRedis      = "redis"
	vectorStoreID          = "documents"
)

// Services is the wired service graph shared by the HTTP server and the CLI.
type Services struct {
	State *appstate.State
	// Redis is the shared client, nil when no component needed one.
	Redis    *cache.Redis
	cleanups []func()
}

func (s *Services) addCleanup(fn func()) {
	s.cleanups = append(s.cleanups, fn)
}

// Close releases every backend in reverse order of creation.
func (s *Services) Close() {
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		s.cleanups[i]()
	}
	s.cleanups = nil
}

// SetupServices connects the configured backends and builds the rag, chat and
// assistant services on top of them. The caller owns the returned Services and
// must Close it.
func SetupServices(
	ctx context.Context,
	cfg *appconfig.Config,
	streaming *monitoring.StreamingMetrics,
) (_ *Services, err error) {
	if cfg == nil {
		return nil, errors.New("configuration is required")
	}
	svc := &Services{}
	defer func() {
		if err != nil {
			svc.Close()
		}
	}()
	checks := map[string]appstate.HealthCheck{}
	docs, err := setupMetadata(ctx, cfg, svc, checks)
	if err != nil {
		return nil, err
	}
	redisClient, err := setupRedis(ctx, cfg, svc, checks)
	if err != nil {
		return nil, err
	}
	if rc, ok := redisClient.(*cache.Redis); ok {
		svc.Redis = rc
	}
	store, err := setupVectorStore(ctx, cfg, svc)
	if err != nil {
		return nil, err
	}
	emb, err := embedder.New(ctx, embedderConfig(&cfg.Embedder))
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}
	chunker, err := chunk.NewProcessor(chunk.Settings{
		Strategy: cfg.RAG.ChunkStrategy,
		Size:     cfg.RAG.ChunkSize,
		Overlap:  cfg.RAG.ChunkOverlap,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid chunking settings: %w", err)
	}
	answerGen, err := llm.New(ctx, llm.AnswerConfig(&cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("failed to create answer model: %w", err)
	}
	chatGen, err := llm.New(ctx, llm.ChatConfig(&cfg.LLM))
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	prompts := tplengine.NewEngine()
	ragService, err := rag.NewService(rag.Deps{
		Parser:    parser.New(),
		Chunker:   chunker,
		Embedder:  emb,
		Store:     store,
		Documents: docs,
		Generator: answerGen,
		Prompts:   prompts,
	}, rag.SettingsFrom(cfg))
	if err != nil {
		return nil, err
	}
	mem, err := memory.NewStore(&cfg.Memory, redisClient)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat memory: %w", err)
	}
	chatService, err := chat.NewService(chatGen, mem, prompts)
	if err != nil {
		return nil, err
	}
	assistantService, err := assistant.NewService(chatGen, prompts)
	if err != nil {
		return nil, err
	}
	state, err := appstate.NewState(
		appstate.NewBaseDeps(cfg, ragService, chatService, assistantService),
		streaming,
	)
	if err != nil {
		return nil, err
	}
	for name, check := range checks {
		state.AddHealthCheck(name, check)
	}
	svc.State = state
	logger.FromContext(ctx).Info("Services initialized",
		"metadata_driver", cfg.Metadata.Driver,
		"vector_provider", cfg.Vector.Provider,
		"embedder", cfg.Embedder.Provider,
		"llm", cfg.LLM.Provider,
		"memory_driver", cfg.Memory.Driver,
	)
	return svc, nil
}

func setupMetadata(
	ctx context.Context,
	cfg *appconfig.Config,
	svc *Services,
	checks map[string]appstate.HealthCheck,
) (document.Repository, error) {
	log := logger.FromContext(ctx)
	if cfg.Metadata.Driver == metadataDriverPostgres {
		dsn := cfg.Database.DSN()
		if cfg.Database.AutoMigrate {
			if err := postgres.ApplyMigrations(ctx, dsn); err != nil {
				return nil, fmt.Errorf("failed to apply postgres migrations: %w", err)
			}
		}
		store, err := postgres.NewStore(ctx, postgres.ConfigFrom(&cfg.Database))
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		svc.addCleanup(func() {
			closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dbShutdownTimeout)
			defer cancel()
			if err := store.Close(closeCtx); err != nil {
				log.Error("Failed to close postgres store", "error", err)
			}
		})
		checks["metadata"] = store.HealthCheck
		log.Info("Metadata store initialized", "driver", metadataDriverPostgres)
		return postgres.NewDocumentRepo(store.Pool()), nil
	}
	store, err := sqlite.NewStore(ctx, sqlite.ConfigFrom(&cfg.SQLite))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite store: %w", err)
	}
	svc.addCleanup(func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dbShutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Error("Failed to close sqlite store", "error", err)
		}
	})
	if err := sqlite.ApplyMigrations(ctx, store.DB()); err != nil {
		return nil, fmt.Errorf("failed to apply sqlite migrations: %w", err)
	}
	checks["metadata"] = store.HealthCheck
	log.Info("Metadata store initialized", "driver", "sqlite", "path", cfg.SQLite.Path)
	return sqlite.NewDocumentRepo(store.DB()), nil
}

// setupRedis connects only when chat memory or the rate limiter needs it, or
// connection details were supplied.
func setupRedis(
	ctx context.Context,
	cfg *appconfig.Config,
	svc *Services,
	checks map[string]appstate.HealthCheck,
) (cache.RedisInterface, error) {
	rateLimitRedis := cfg.RateLimit.Enabled && cfg.RateLimit.Driver == "redis"
	if !cfg.Redis.Configured() && cfg.Memory.Driver != memoryDriverRedis && !rateLimitRedis {
		return nil, nil
	}
	client, err := cache.NewRedis(ctx, cache.ConfigFrom(&cfg.Redis))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	log := logger.FromContext(ctx)
	svc.addCleanup(func() {
		if err := client.Close(); err != nil {
			log.Error("Failed to close redis client", "error", err)
		}
	})
	checks["redis"] = client.HealthCheck
	log.Info("Redis client initialized")
	return client, nil
}

func setupVectorStore(ctx context.Context, cfg *appconfig.Config, svc *Services) (vectordb.Store, error) {
	store, err := vectordb.New(ctx, vectorConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to create vector store: %w", err)
	}
	log := logger.FromContext(ctx)
	svc.addCleanup(func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), dbShutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			log.Error("Failed to close vector store", "error", err)
		}
	})
	log.Info("Vector store initialized", "provider", cfg.Vector.Provider, "dimension", cfg.Vector.Dimension)
	return store, nil
}

// vectorConfig maps the vector settings, reusing the postgres or redis
// connection when no dedicated DSN is given.
func vectorConfig(cfg *appconfig.Config) *vectordb.Config {
	v := &cfg.Vector
	out := &vectordb.Config{
		ID:          vectorStoreID,
		Provider:    vectordb.Provider(v.Provider),
		DSN:         strings.TrimSpace(v.DSN),
		Path:        v.Path,
		Table:       v.Table,
		Collection:  v.Collection,
		APIKey:      v.APIKey.Value(),
		Dimension:   v.Dimension,
		Metric:      vectordb.Metric(v.Metric),
		EnsureIndex: v.EnsureIndex,
		IndexType:   vectordb.IndexType(v.IndexType),
		MaxTopK:     v.MaxTopK,
	}
	if out.DSN == "" {
		switch out.Provider {
		case vectordb.ProviderPGVector:
			out.DSN = cfg.Database.DSN()
		case vectordb.ProviderRedis:
			out.DSN = redisURL(&cfg.Redis)
		}
	}
	return out
}

func redisURL(cfg *appconfig.RedisConfig) string {
	if cfg.URL != "" {
		return cfg.URL
	}
	if cfg.Host == "" {
		return ""
	}
	port := cfg.Port
	if port == "" {
		port = "6379"
	}
	return fmt.Sprintf("redis://%s:%s/%d", cfg.Host, port, cfg.DB)
}

func embedderConfig(cfg *appconfig.EmbedderConfig) *embedder.Config {
	return &embedder.Config{
		ID:             cfg.Model,
		Provider:       embedder.Provider(cfg.Provider),
		Model:          cfg.Model,
		APIKey:         cfg.APIKey.Value(),
		BaseURL:        cfg.BaseURL,
		Dimension:      cfg.Dimension,
		BatchSize:      cfg.BatchSize,
		StripNewLines:  cfg.StripNewLines,
		QueryCacheSize: cfg.QueryCache,
	}
}

func (s *Server) setupMonitoring() (*monitoring.Service, error) {
	log := logger.FromContext(s.ctx)
	ctx, cancel := context.WithTimeout(s.ctx, monitoringInitTimeout)
	defer cancel()
	service, err := monitoring.NewService(ctx, monitoring.ConfigFrom(s.config))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize monitoring: %w", err)
	}
	if service.IsInitialized() {
		service.SetAsGlobal()
	}
	s.addCleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), monitoringShutdownTimeout)
		defer cancel()
		if err := service.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to shutdown monitoring service", "error", err)
		}
	})
	return service, nil
}

// setupDependencies brings up monitoring first so every instrument created by
// the services binds to the exporter's meter provider.
func (s *Server) setupDependencies() (*appstate.State, error) {
	mon, err := s.setupMonitoring()
	if err != nil {
		return nil, err
	}
	s.monitoring = mon
	start := time.Now()
	services, err := SetupServices(s.ctx, s.config, mon.Streaming())
	if err != nil {
		return nil, err
	}
	s.addCleanup(services.Close)
	s.redis = services.Redis
	logger.FromContext(s.ctx).Debug("Dependencies ready", "duration", time.Since(start))
	return services.State, nil
}
