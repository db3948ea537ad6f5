package assistant

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"

	"github.com/compozy/docrag/engine/llm"
	"github.com/compozy/docrag/pkg/logger"
	"github.com/compozy/docrag/pkg/tplengine"
)

var (
	ErrUnknownTemplate = errors.New("unknown assistant template")
	ErrInvalidParams   = errors.New("invalid template parameters")
	ErrGeneration      = errors.New("generation failed")
)

const (
	promptPrefix = "assistant."
	systemSuffix = ".system"
)

// Info is the public description of a template.
type Info struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Params      []string `json:"params"`
}

// Service renders assistant templates and sends them to the generator.
type Service struct {
	generator llm.Generator
	prompts   *tplengine.TemplateEngine
	names     map[string]struct{}
}

// NewService registers every template on engine. A template whose prompt uses a
// slot it does not declare is rejected here, before any request is served.
func NewService(gen llm.Generator, engine *tplengine.TemplateEngine, templates ...Template) (*Service, error) {
	if gen == nil {
		return nil, errors.New("assistant: generator is required")
	}
	if engine == nil {
		return nil, errors.New("assistant: template engine is required")
	}
	if len(templates) == 0 {
		templates = Builtin
	}
	s := &Service{generator: gen, prompts: engine, names: make(map[string]struct{}, len(templates))}
	for _, tpl := range templates {
		if _, dup := s.names[tpl.Name]; dup {
			return nil, fmt.Errorf("assistant: duplicate template %q", tpl.Name)
		}
		for _, def := range []tplengine.Definition{
			{Name: promptPrefix + tpl.Name, Description: tpl.Description, Params: tpl.Params, Text: tpl.Prompt},
			{Name: promptPrefix + tpl.Name + systemSuffix, Params: tpl.Params, Text: tpl.System},
		} {
			if err := engine.Register(def); err != nil {
				return nil, fmt.Errorf("assistant: register %s: %w", tpl.Name, err)
			}
		}
		s.names[tpl.Name] = struct{}{}
	}
	return s, nil
}

// Templates lists the available templates sorted by name, as registered on
// the shared prompt engine.
func (s *Service) Templates() []Info {
	out := make([]Info, 0, len(s.names))
	for _, def := range s.prompts.Definitions() {
		name, ok := strings.CutPrefix(def.Name, promptPrefix)
		if !ok || strings.HasSuffix(name, systemSuffix) {
			continue
		}
		if _, own := s.names[name]; !own {
			continue
		}
		out = append(out, Info{Name: name, Description: def.Description, Params: def.Params})
	}
	return out
}

func (s *Service) request(name string, params map[string]any) (*llm.Request, error) {
	name = strings.TrimSpace(name)
	def, ok := s.prompts.Definition(promptPrefix + name)
	if _, own := s.names[name]; !ok || !own {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, name)
	}
	for _, p := range def.Params {
		v, present := params[p]
		if !present || v == nil || fmt.Sprint(v) == "" {
			return nil, fmt.Errorf("%w: %s requires %q", ErrInvalidParams, name, p)
		}
	}
	system, err := s.prompts.Render(promptPrefix+name+systemSuffix, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	prompt, err := s.prompts.Render(promptPrefix+name, params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return llm.UserRequest(system, prompt), nil
}

// Run renders the template with params and returns the full reply.
func (s *Service) Run(ctx context.Context, name string, params map[string]any) (string, error) {
	req, err := s.request(name, params)
	if err != nil {
		return "", err
	}
	logger.FromContext(ctx).Debug("Running assistant template", "template", name)
	text, err := s.generator.Generate(ctx, req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	return text, nil
}

// Stream validates and renders eagerly, then returns the reply as fragments.
func (s *Service) Stream(ctx context.Context, name string, params map[string]any) (iter.Seq2[string, error], error) {
	req, err := s.request(name, params)
	if err != nil {
		return nil, err
	}
	return llm.SingleUse(func(yield func(string, error) bool) {
		for fragment, err := range s.generator.Stream(ctx, req) {
			if err != nil {
				yield("", fmt.Errorf("%w: %w", ErrGeneration, err))
				return
			}
			if !yield(fragment, nil) {
				return
			}
		}
	}), nil
}
