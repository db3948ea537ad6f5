package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bufferLogger(level LogLevel, asJSON bool) (Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewLogger(&Config{Level: level, Output: &buf, JSON: asJSON, TimeFormat: "15:04:05"}), &buf
}

func TestFromContext(t *testing.T) {
	t.Run("Should return the request logger", func(t *testing.T) {
		l := NewForTests()
		assert.Same(t, l, FromContext(ContextWithLogger(t.Context(), l)))
	})

	t.Run("Should fall back to the default logger", func(t *testing.T) {
		for name, ctx := range map[string]context.Context{
			"empty":      t.Context(),
			"wrong type": context.WithValue(t.Context(), LoggerCtxKey, "ingest"),
			"nil logger": context.WithValue(t.Context(), LoggerCtxKey, Logger(nil)),
		} {
			require.NotNil(t, FromContext(ctx), name)
		}
		assert.Same(t, GetDefault(), FromContext(t.Context()))
	})
}

func TestNewLogger(t *testing.T) {
	t.Run("Should emit structured JSON records", func(t *testing.T) {
		l, buf := bufferLogger(InfoLevel, true)
		l.With("document_id", "garden").Info("Document ingested", "chunks", 3)

		var record map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
		assert.Equal(t, "Document ingested", record["msg"])
		assert.Equal(t, "garden", record["document_id"])
		assert.EqualValues(t, 3, record["chunks"])
	})

	t.Run("Should drop records below the configured level", func(t *testing.T) {
		l, buf := bufferLogger(WarnLevel, false)
		l.Debug("retrieval scores")
		l.Info("request completed")
		l.Warn("orphan vectors left behind")
		out := buf.String()
		assert.NotContains(t, out, "retrieval scores")
		assert.NotContains(t, out, "request completed")
		assert.Contains(t, out, "orphan vectors left behind")
	})

	t.Run("Should stay silent when disabled", func(t *testing.T) {
		l, buf := bufferLogger(DisabledLevel, false)
		l.Error("should not appear")
		assert.Empty(t, buf.String())
	})

	t.Run("Should use the test configuration under go test", func(t *testing.T) {
		assert.True(t, IsTestEnvironment())
		assert.NotNil(t, NewLogger(nil))
	})
}

func TestParseLevel(t *testing.T) {
	t.Run("Should map known level names case-insensitively", func(t *testing.T) {
		assert.Equal(t, DebugLevel, ParseLevel("DEBUG"))
		assert.Equal(t, WarnLevel, ParseLevel(" warn "))
		assert.Equal(t, ErrorLevel, ParseLevel("error"))
		assert.Equal(t, DisabledLevel, ParseLevel("disabled"))
	})

	t.Run("Should fall back to info for unknown names", func(t *testing.T) {
		assert.Equal(t, InfoLevel, ParseLevel("verbose"))
		assert.Equal(t, InfoLevel, ParseLevel(""))
	})
}

func TestConfigFromFlags(t *testing.T) {
	parse := func(t *testing.T, args ...string) *pflag.FlagSet {
		t.Helper()
		flags := pflag.NewFlagSet("docrag", pflag.ContinueOnError)
		AddFlags(flags)
		require.NoError(t, flags.Parse(args))
		return flags
	}

	t.Run("Should read level and format flags", func(t *testing.T) {
		var out bytes.Buffer
		cfg := ConfigFromFlags(parse(t, "--log-level=warn", "--log-json", "--log-source"), &out)
		assert.Equal(t, WarnLevel, cfg.Level)
		assert.True(t, cfg.JSON)
		assert.True(t, cfg.AddSource)
		assert.Same(t, &out, cfg.Output)
	})

	t.Run("Should let --debug override the level", func(t *testing.T) {
		cfg := ConfigFromFlags(parse(t, "--log-level=error", "--debug"), nil)
		assert.Equal(t, DebugLevel, cfg.Level)
	})

	t.Run("Should keep defaults for unregistered flags", func(t *testing.T) {
		cfg := ConfigFromFlags(pflag.NewFlagSet("bare", pflag.ContinueOnError), nil)
		assert.Equal(t, InfoLevel, cfg.Level)
		assert.False(t, cfg.JSON)
	})
}

func TestInit(t *testing.T) {
	t.Run("Should replace the default logger", func(t *testing.T) {
		var buf bytes.Buffer
		installed := Init(&Config{Level: InfoLevel, Output: &buf, TimeFormat: "15:04:05"})
		t.Cleanup(func() { Init(TestConfig()) })

		GetDefault().Info("routed through default")

		assert.Same(t, installed, GetDefault())
		assert.True(t, strings.Contains(buf.String(), "routed through default"))
	})
}
