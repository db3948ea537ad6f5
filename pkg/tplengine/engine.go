package tplengine

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrUndeclaredSlot   = errors.New("template references an undeclared slot")
	ErrMissingParam     = errors.New("missing template parameter")
)

// Definition describes a named prompt template and the slots it accepts.
type Definition struct {
	Name        string
	Description string
	Params      []string
	Text        string
}

type entry struct {
	def  Definition
	tmpl *template.Template
}

// TemplateEngine holds named text templates with declared parameters.
// Slots are written as {{ .name }} and sprig functions are available.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*entry
}

// NewEngine creates an empty template engine
func NewEngine() *TemplateEngine {
	return &TemplateEngine{templates: make(map[string]*entry)}
}

func parseTemplate(name, text string) (*template.Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Funcs(sprig.FuncMap()).Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %q: %w", name, err)
	}
	return tmpl, nil
}

// Register parses def and verifies every slot it references is declared in
// def.Params. Re-registering a name replaces the previous template.
func (e *TemplateEngine) Register(def Definition) error {
	if strings.TrimSpace(def.Name) == "" {
		return errors.New("template name is required")
	}
	tmpl, err := parseTemplate(def.Name, def.Text)
	if err != nil {
		return err
	}
	declared := make(map[string]struct{}, len(def.Params))
	for _, p := range def.Params {
		declared[p] = struct{}{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, slot := range Slots(tmpl) {
		if _, ok := declared[slot]; ok {
			continue
		}
		return fmt.Errorf("%w: %q uses {{ .%s }}", ErrUndeclaredSlot, def.Name, slot)
	}
	def.Params = slices.Clone(def.Params)
	e.templates[def.Name] = &entry{def: def, tmpl: tmpl}
	return nil
}

// Has reports whether a template is registered under name.
func (e *TemplateEngine) Has(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.templates[name]
	return ok
}

// Definition returns the registered definition for name.
func (e *TemplateEngine) Definition(name string) (Definition, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	en, ok := e.templates[name]
	if !ok {
		return Definition{}, false
	}
	def := en.def
	def.Params = slices.Clone(def.Params)
	return def, true
}

// Definitions lists registered templates sorted by name.
func (e *TemplateEngine) Definitions() []Definition {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Definition, 0, len(e.templates))
	for _, en := range e.templates {
		def := en.def
		def.Params = slices.Clone(def.Params)
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Render executes a registered template. Every declared parameter must be supplied.
func (e *TemplateEngine) Render(name string, params map[string]any) (string, error) {
	e.mu.RLock()
	en, ok := e.templates[name]
	e.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}
	var missing []string
	for _, p := range en.def.Params {
		if _, ok := params[p]; !ok {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("%w for %q: %s", ErrMissingParam, name, strings.Join(missing, ", "))
	}
	return e.execute(en.tmpl, params)
}

func (e *TemplateEngine) execute(tmpl *template.Template, params map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("template execution error: %w", err)
	}
	return buf.String(), nil
}
