package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYAMLProvider(t *testing.T) {
	t.Run("Should load nested values and drop nulls", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "docrag.yaml")
		content := `
server:
  port: 9090
  host: ~
rag:
  chunk_size: 400
  chunk_strategy: recursive
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		src := NewYAMLProvider(path)
		assert.Equal(t, SourceYAML, src.Type())

		data, err := src.Load()
		require.NoError(t, err)
		server := data["server"].(map[string]any)
		assert.Equal(t, 9090, server["port"])
		_, hasHost := server["host"]
		assert.False(t, hasHost)
		assert.Equal(t, "recursive", data["rag"].(map[string]any)["chunk_strategy"])
	})

	t.Run("Should return empty data for a missing file", func(t *testing.T) {
		data, err := NewYAMLProvider(filepath.Join(t.TempDir(), "missing.yaml")).Load()
		require.NoError(t, err)
		assert.Empty(t, data)
	})

	t.Run("Should fail on malformed YAML", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o600))
		_, err := NewYAMLProvider(path).Load()
		assert.Error(t, err)
	})
}

func TestCLIProvider(t *testing.T) {
	t.Run("Should map flag names and dotted paths", func(t *testing.T) {
		src := NewCLIProvider(map[string]any{
			"port":            9000,
			"chunk-size":      120,
			"memory.driver":   "redis",
			"unknown-flag":    true,
			"metadata-driver": "sqlite",
		})
		assert.Equal(t, SourceCLI, src.Type())
		data, err := src.Load()
		require.NoError(t, err)
		assert.Equal(t, 9000, data["server"].(map[string]any)["port"])
		assert.Equal(t, 120, data["rag"].(map[string]any)["chunk_size"])
		assert.Equal(t, "redis", data["memory"].(map[string]any)["driver"])
		assert.Equal(t, "sqlite", data["metadata"].(map[string]any)["driver"])
		_, hasUnknown := data["unknown-flag"]
		assert.False(t, hasUnknown)
	})

	t.Run("Should report conflicting paths", func(t *testing.T) {
		m := map[string]any{"server": "scalar"}
		err := setNested(m, "server.port", 1)
		assert.ErrorContains(t, err, "configuration conflict")
	})
}
