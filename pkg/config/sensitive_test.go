package config

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSensitiveString(t *testing.T) {
	t.Run("Should hide provider keys when formatted or encoded", func(t *testing.T) {
		cfg := Default()
		cfg.LLM.APIKey = "sk-live-123"
		cfg.Embedder.APIKey = "emb-456"
		assert.Equal(t, redacted, fmt.Sprint(cfg.LLM.APIKey))
		assert.Equal(t, "sk-live-123", cfg.LLM.APIKey.Value())

		data, err := json.Marshal(cfg.LLM)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "sk-live-123")
		assert.Contains(t, string(data), redacted)

		data, err = json.Marshal(cfg)
		require.NoError(t, err)
		assert.NotContains(t, string(data), "emb-456")
		assert.NotContains(t, cfg.String(), "sk-live-123")
	})

	t.Run("Should keep unset secrets empty", func(t *testing.T) {
		var key SensitiveString
		assert.Empty(t, key.String())
		data, err := json.Marshal(key)
		require.NoError(t, err)
		assert.JSONEq(t, `""`, string(data))
	})

	t.Run("Should accept raw secrets from JSON input", func(t *testing.T) {
		var creds struct {
			Password SensitiveString `json:"password"`
		}
		require.NoError(t, json.Unmarshal([]byte(`{"password":"hunter2"}`), &creds))
		assert.Equal(t, "hunter2", creds.Password.Value())
	})

	t.Run("Should decode secrets from the environment", func(t *testing.T) {
		t.Setenv("DB_PASSWORD", "from-env")
		cfg, err := NewService().Load(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "from-env", cfg.Database.Password.Value())
		assert.Equal(t, redacted, cfg.Database.Password.String())
	})

	t.Run("Should flag secret paths", func(t *testing.T) {
		assert.True(t, IsSensitiveConfigPath("llm.api_key"))
		assert.True(t, IsSensitiveConfigPath("redis.password"))
		assert.False(t, IsSensitiveConfigPath("llm.model"))
	})
}
