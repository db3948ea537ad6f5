package llm

import (
	"sync"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// TokenCounter estimates prompt sizes. When the encoding cannot be loaded it
// falls back to one token per four characters.
type TokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTokenCounter resolves modelOrEncoding as an encoding name first, then as
// a model name, then falls back to cl100k_base.
func NewTokenCounter(modelOrEncoding string) *TokenCounter {
	if modelOrEncoding == "" {
		modelOrEncoding = defaultEncoding
	}
	if enc, err := tiktoken.GetEncoding(modelOrEncoding); err == nil {
		return &TokenCounter{enc: enc}
	}
	if enc, err := tiktoken.EncodingForModel(modelOrEncoding); err == nil {
		return &TokenCounter{enc: enc}
	}
	if enc, err := tiktoken.GetEncoding(defaultEncoding); err == nil {
		return &TokenCounter{enc: enc}
	}
	return &TokenCounter{}
}

// Count returns the number of tokens in text.
func (c *TokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c == nil || c.enc == nil {
		return approximateTokens(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

// Exact reports whether counts come from a real encoding.
func (c *TokenCounter) Exact() bool {
	return c != nil && c.enc != nil
}

var (
	defaultCounterOnce sync.Once
	defaultCounter     *TokenCounter
)

// CountTokens counts text with the shared cl100k_base counter.
func CountTokens(text string) int {
	defaultCounterOnce.Do(func() {
		defaultCounter = NewTokenCounter(defaultEncoding)
	})
	return defaultCounter.Count(text)
}

func approximateTokens(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}
