package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	data       map[string]any
	sourceType SourceType
	err        error
}

func (m *mockSource) Load() (map[string]any, error) {
	return m.data, m.err
}

func (m *mockSource) Type() SourceType {
	return m.sourceType
}

func TestLoader_Load(t *testing.T) {
	t.Run("Should load default configuration when no sources provided", func(t *testing.T) {
		cfg, err := NewService().Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, 300, cfg.RAG.ChunkSize)
	})

	t.Run("Should apply sources in precedence order", func(t *testing.T) {
		svc := NewService()
		yamlSrc := &mockSource{
			data: map[string]any{
				"server": map[string]any{"host": "yaml.example.com", "port": 9001},
			},
			sourceType: SourceYAML,
		}
		cliSrc := &mockSource{
			data:       map[string]any{"server": map[string]any{"host": "cli.example.com"}},
			sourceType: SourceCLI,
		}
		cfg, err := svc.Load(context.Background(), yamlSrc, cliSrc)
		require.NoError(t, err)
		assert.Equal(t, "cli.example.com", cfg.Server.Host)
		assert.Equal(t, 9001, cfg.Server.Port)
		assert.Equal(t, SourceCLI, svc.GetSource("server.host"))
		assert.Equal(t, SourceYAML, svc.GetSource("server.port"))
		assert.Equal(t, SourceDefault, svc.GetSource("rag.chunk_size"))
	})

	t.Run("Should let CLI flags override environment variables", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "7070")
		t.Setenv("SERVER_HOST", "env.example.com")
		svc := NewService()
		cliSrc := &mockSource{
			data:       map[string]any{"server": map[string]any{"port": 9090}},
			sourceType: SourceCLI,
		}
		cfg, err := svc.Load(context.Background(), cliSrc)
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "env.example.com", cfg.Server.Host)
		assert.Equal(t, SourceCLI, svc.GetSource("server.port"))
	})

	t.Run("Should let environment variables override sources", func(t *testing.T) {
		t.Setenv("SERVER_PORT", "7070")
		t.Setenv("RAG_CHUNK_SIZE", "500")
		t.Setenv("MEMORY_TTL", "30m")
		t.Setenv("SERVER_CORS_ALLOWED_ORIGINS", "http://a.test,http://b.test")
		svc := NewService()
		src := &mockSource{
			data:       map[string]any{"server": map[string]any{"port": 9001}},
			sourceType: SourceYAML,
		}
		cfg, err := svc.Load(context.Background(), src)
		require.NoError(t, err)
		assert.Equal(t, 7070, cfg.Server.Port)
		assert.Equal(t, 500, cfg.RAG.ChunkSize)
		assert.Equal(t, 30*time.Minute, cfg.Memory.TTL)
		assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.AllowedOrigins)
		assert.Equal(t, SourceEnv, svc.GetSource("server.port"))
	})

	t.Run("Should decode secrets into SensitiveString", func(t *testing.T) {
		t.Setenv("LLM_API_KEY", "sk-test")
		cfg, err := NewService().Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "sk-test", cfg.LLM.APIKey.Value())
		assert.Equal(t, "[REDACTED]", cfg.LLM.APIKey.String())
	})

	t.Run("Should ignore environment variables without a mapping", func(t *testing.T) {
		t.Setenv("SERVER_UNKNOWN_OPTION", "x")
		_, err := NewService().Load(context.Background())
		require.NoError(t, err)
	})

	t.Run("Should fail when a source errors", func(t *testing.T) {
		src := &mockSource{err: errors.New("boom"), sourceType: SourceYAML}
		_, err := NewService().Load(context.Background(), src)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "boom")
	})

	t.Run("Should fail validation for invalid merged values", func(t *testing.T) {
		src := &mockSource{
			data:       map[string]any{"rag": map[string]any{"chunk_overlap": 400}},
			sourceType: SourceYAML,
		}
		_, err := NewService().Load(context.Background(), src)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "configuration validation failed")
	})

	t.Run("Should skip nil sources", func(t *testing.T) {
		cfg, err := NewService().Load(context.Background(), nil)
		require.NoError(t, err)
		assert.NotNil(t, cfg)
	})
}

func TestEnvMappings(t *testing.T) {
	t.Run("Should map tagged fields to config paths", func(t *testing.T) {
		m := GenerateEnvToConfigMap()
		assert.Equal(t, "server.port", m["SERVER_PORT"])
		assert.Equal(t, "rag.chunk_overlap", m["RAG_CHUNK_OVERLAP"])
		assert.Equal(t, "vector.dimension", m["VECTOR_DIMENSION"])
		assert.Equal(t, "EMBEDDER_MODEL", GetEnvVarForConfigPath("embedder.model"))
	})

	t.Run("Should flag secret paths as sensitive", func(t *testing.T) {
		assert.True(t, IsSensitiveConfigPath("llm.api_key"))
		assert.True(t, IsSensitiveConfigPath("database.password"))
		assert.False(t, IsSensitiveConfigPath("server.host"))
	})
}
