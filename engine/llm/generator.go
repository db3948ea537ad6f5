package llm

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"
)

// ErrStreamConsumed is yielded when a fragment sequence is ranged over again.
var ErrStreamConsumed = errors.New("fragment stream already consumed")

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single conversation turn.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Request carries one generation call. Zero Temperature and MaxTokens fall back
// to the generator's configured defaults.
type Request struct {
	SystemPrompt string
	Messages     []Message
	Temperature  float64
	MaxTokens    int
}

// UserRequest builds a single-turn request.
func UserRequest(systemPrompt, prompt string) *Request {
	return &Request{
		SystemPrompt: systemPrompt,
		Messages:     []Message{{Role: RoleUser, Content: prompt}},
	}
}

// Generator produces model completions.
//
// Stream returns a lazy, single-use sequence of text fragments. Breaking out of
// the range loop cancels the underlying provider call; a failure is delivered
// as the last pair with an empty fragment.
type Generator interface {
	Generate(ctx context.Context, req *Request) (string, error)
	Stream(ctx context.Context, req *Request) iter.Seq2[string, error]
}

// SingleUse guards seq so that only the first range loop reaches the
// provider. Later loops get a single ErrStreamConsumed pair.
func SingleUse(seq iter.Seq2[string, error]) iter.Seq2[string, error] {
	var used atomic.Bool
	return func(yield func(string, error) bool) {
		if used.Swap(true) {
			yield("", ErrStreamConsumed)
			return
		}
		seq(yield)
	}
}
