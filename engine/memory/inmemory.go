package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/compozy/docrag/engine/llm"
)

// InMemoryStore holds sessions in a process-local map. Entries never expire.
type InMemoryStore struct {
	mu       sync.RWMutex
	opts     Options
	sessions map[string][]llm.Message
}

var _ Store = (*InMemoryStore)(nil)

func NewInMemoryStore(opts Options) *InMemoryStore {
	return &InMemoryStore{opts: opts.withDefaults(), sessions: make(map[string][]llm.Message)}
}

func (s *InMemoryStore) Read(_ context.Context, sessionID string) ([]llm.Message, error) {
	id, err := validSession(sessionID)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := slices.Clone(s.sessions[id])
	if msgs == nil {
		msgs = []llm.Message{}
	}
	return msgs, nil
}

func (s *InMemoryStore) Append(_ context.Context, sessionID string, msgs ...llm.Message) error {
	id, err := validSession(sessionID)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	merged := append(slices.Clone(s.sessions[id]), msgs...)
	s.sessions[id] = slices.Clone(window(merged, s.opts.MaxMessages))
	return nil
}

func (s *InMemoryStore) Replace(_ context.Context, sessionID string, msgs []llm.Message) error {
	id, err := validSession(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(msgs) == 0 {
		delete(s.sessions, id)
		return nil
	}
	s.sessions[id] = slices.Clone(window(msgs, s.opts.MaxMessages))
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, sessionID string) error {
	id, err := validSession(sessionID)
	if err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	return nil
}
