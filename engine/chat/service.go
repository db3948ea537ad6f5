package chat

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"sort"
	"strings"

	"github.com/compozy/docrag/engine/llm"
	"github.com/compozy/docrag/engine/memory"
	"github.com/compozy/docrag/pkg/logger"
	"github.com/compozy/docrag/pkg/tplengine"
)

var (
	ErrInvalidInput   = errors.New("invalid chat input")
	ErrUnknownPersona = errors.New("unknown persona")
	ErrGeneration     = errors.New("generation failed")
)

const personaPrefix = "persona."

// Input is one user turn.
type Input struct {
	SessionID string
	Message   string
	Persona   string
	Params    map[string]any
}

// Reply is the assistant turn produced for an Input.
type Reply struct {
	SessionID string `json:"sessionId"`
	Persona   string `json:"persona"`
	Reply     string `json:"reply"`
}

// Stream carries a reply as fragments. The turn is saved to memory only when
// the sequence runs to completion without error. Fragments is single-use.
type Stream struct {
	SessionID string
	Persona   string
	Fragments iter.Seq2[string, error]
}

// PersonaInfo is the public description of a persona.
type PersonaInfo struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Params      []string `json:"params,omitempty"`
}

// Service runs conversations whose history lives in a memory.Store.
type Service struct {
	generator llm.Generator
	store     memory.Store
	prompts   *tplengine.TemplateEngine
	personas  map[string]Persona
}

func NewService(
	gen llm.Generator,
	store memory.Store,
	engine *tplengine.TemplateEngine,
	personas ...Persona,
) (*Service, error) {
	if gen == nil || store == nil || engine == nil {
		return nil, errors.New("chat: generator, memory store and template engine are required")
	}
	if len(personas) == 0 {
		personas = Personas
	}
	s := &Service{generator: gen, store: store, prompts: engine, personas: make(map[string]Persona, len(personas))}
	for _, p := range personas {
		def := tplengine.Definition{Name: personaPrefix + p.Name, Description: p.Description, Params: p.Params, Text: p.System}
		if err := engine.Register(def); err != nil {
			return nil, fmt.Errorf("chat: register persona %s: %w", p.Name, err)
		}
		s.personas[p.Name] = p
	}
	if _, ok := s.personas[DefaultPersona]; !ok {
		return nil, fmt.Errorf("chat: persona %q must be defined", DefaultPersona)
	}
	return s, nil
}

func (s *Service) Personas() []PersonaInfo {
	out := make([]PersonaInfo, 0, len(s.personas))
	for _, p := range s.personas {
		out = append(out, PersonaInfo{Name: p.Name, Description: p.Description, Params: slices.Clone(p.Params)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

type turn struct {
	sessionID string
	persona   string
	user      llm.Message
	request   *llm.Request
}

func (s *Service) prepare(ctx context.Context, in Input) (*turn, error) {
	sessionID := strings.TrimSpace(in.SessionID)
	if sessionID == "" {
		return nil, fmt.Errorf("%w: sessionId must not be empty", ErrInvalidInput)
	}
	message := strings.TrimSpace(in.Message)
	if message == "" {
		return nil, fmt.Errorf("%w: message must not be empty", ErrInvalidInput)
	}
	name := strings.TrimSpace(in.Persona)
	if name == "" {
		name = DefaultPersona
	}
	persona, ok := s.personas[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPersona, name)
	}
	system, err := s.prompts.Render(personaPrefix+persona.Name, in.Params)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	history, err := s.store.Read(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("chat: load history: %w", err)
	}
	user := llm.Message{Role: llm.RoleUser, Content: message}
	msgs := make([]llm.Message, 0, len(history)+1)
	msgs = append(msgs, history...)
	msgs = append(msgs, user)
	return &turn{
		sessionID: sessionID,
		persona:   persona.Name,
		user:      user,
		request:   &llm.Request{SystemPrompt: system, Messages: msgs},
	}, nil
}

func (s *Service) remember(ctx context.Context, t *turn, reply string) error {
	assistantMsg := llm.Message{Role: llm.RoleAssistant, Content: reply}
	if err := s.store.Append(ctx, t.sessionID, t.user, assistantMsg); err != nil {
		return fmt.Errorf("chat: save history: %w", err)
	}
	return nil
}

// Send generates a reply using the session history and stores both turns.
func (s *Service) Send(ctx context.Context, in Input) (*Reply, error) {
	t, err := s.prepare(ctx, in)
	if err != nil {
		return nil, err
	}
	text, err := s.generator.Generate(ctx, t.request)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeneration, err)
	}
	if err := s.remember(ctx, t, text); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Debug("Chat turn completed",
		"session_id", t.sessionID, "persona", t.persona, "history", len(t.request.Messages)-1)
	return &Reply{SessionID: t.sessionID, Persona: t.persona, Reply: text}, nil
}

// SendStream is Send with the reply delivered as fragments.
func (s *Service) SendStream(ctx context.Context, in Input) (*Stream, error) {
	t, err := s.prepare(ctx, in)
	if err != nil {
		return nil, err
	}
	fragments := llm.SingleUse(func(yield func(string, error) bool) {
		var sb strings.Builder
		for fragment, err := range s.generator.Stream(ctx, t.request) {
			if err != nil {
				yield("", fmt.Errorf("%w: %w", ErrGeneration, err))
				return
			}
			sb.WriteString(fragment)
			if !yield(fragment, nil) {
				return
			}
		}
		if err := s.remember(ctx, t, sb.String()); err != nil {
			yield("", err)
		}
	})
	return &Stream{SessionID: t.sessionID, Persona: t.persona, Fragments: fragments}, nil
}

// History returns the stored window for a session, oldest first.
func (s *Service) History(ctx context.Context, sessionID string) ([]llm.Message, error) {
	msgs, err := s.store.Read(ctx, sessionID)
	if errors.Is(err, memory.ErrInvalidSession) {
		return nil, fmt.Errorf("%w: sessionId must not be empty", ErrInvalidInput)
	}
	return msgs, err
}

// Reset forgets a session.
func (s *Service) Reset(ctx context.Context, sessionID string) error {
	err := s.store.Delete(ctx, sessionID)
	if errors.Is(err, memory.ErrInvalidSession) {
		return fmt.Errorf("%w: sessionId must not be empty", ErrInvalidInput)
	}
	return err
}
