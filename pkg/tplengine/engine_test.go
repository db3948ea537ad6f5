package tplengine

import (
	"testing"
	"text/template"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplateEngine_Register(t *testing.T) {
	t.Run("Should register a template whose slots are declared", func(t *testing.T) {
		e := NewEngine()
		err := e.Register(Definition{
			Name:   "explain",
			Params: []string{"role", "topic"},
			Text:   "You are a {{ .role }}. Explain {{ .topic | upper }}.",
		})
		require.NoError(t, err)
		assert.True(t, e.Has("explain"))
	})

	t.Run("Should reject a template referencing an undeclared slot", func(t *testing.T) {
		e := NewEngine()
		err := e.Register(Definition{Name: "bad", Params: []string{"text"}, Text: "{{ .text }} in {{ .language }}"})
		require.ErrorIs(t, err, ErrUndeclaredSlot)
		assert.Contains(t, err.Error(), "language")
		assert.False(t, e.Has("bad"))
	})

	t.Run("Should fail on syntax errors", func(t *testing.T) {
		err := NewEngine().Register(Definition{Name: "broken", Text: "{{ .a "})
		assert.Error(t, err)
	})

	t.Run("Should require a name", func(t *testing.T) {
		assert.Error(t, NewEngine().Register(Definition{Text: "x"}))
	})
}

func TestTemplateEngine_Render(t *testing.T) {
	e := NewEngine()
	require.NoError(t, e.Register(Definition{
		Name:   "translate",
		Params: []string{"source_lang", "target_lang", "text"},
		Text:   "Translate from {{ .source_lang }} to {{ .target_lang }}: {{ .text }}",
	}))

	t.Run("Should render with all parameters", func(t *testing.T) {
		out, err := e.Render("translate", map[string]any{
			"source_lang": "English", "target_lang": "French", "text": "hello",
		})
		require.NoError(t, err)
		assert.Equal(t, "Translate from English to French: hello", out)
	})

	t.Run("Should fail when a declared parameter is missing", func(t *testing.T) {
		_, err := e.Render("translate", map[string]any{"source_lang": "English", "text": "hello"})
		require.ErrorIs(t, err, ErrMissingParam)
		assert.Contains(t, err.Error(), "target_lang")
	})

	t.Run("Should fail for unknown templates", func(t *testing.T) {
		_, err := e.Render("nope", nil)
		assert.ErrorIs(t, err, ErrTemplateNotFound)
	})

	t.Run("Should list definitions sorted by name", func(t *testing.T) {
		e2 := NewEngine()
		require.NoError(t, e2.Register(Definition{Name: "b", Text: "b"}))
		require.NoError(t, e2.Register(Definition{Name: "a", Description: "first", Params: []string{"x"}, Text: "{{ .x }}"}))
		defs := e2.Definitions()
		require.Len(t, defs, 2)
		assert.Equal(t, "a", defs[0].Name)
		assert.Equal(t, "first", defs[0].Description)

		defs[0].Params[0] = "changed"
		def, ok := e2.Definition("a")
		require.True(t, ok)
		assert.Equal(t, []string{"x"}, def.Params)
		_, ok = e2.Definition("missing")
		assert.False(t, ok)
	})
}

func TestSlots(t *testing.T) {
	t.Run("Should collect top-level fields across control structures", func(t *testing.T) {
		tmpl := template.Must(template.New("t").Parse(
			`{{ if .a }}{{ .b.c }}{{ else }}{{ .d }}{{ end }}` +
				`{{ range .items }}{{ .name }}{{ $.e }}{{ end }}` +
				`{{ with .f }}{{ .inner }}{{ end }}{{ printf "%s" .g }}`,
		))
		assert.Equal(t, []string{"a", "b", "d", "e", "f", "g", "items"}, Slots(tmpl))
	})
}
