package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// EchoModel is a deterministic offline model. It answers with the last human
// message and honors the streaming callback word by word.
type EchoModel struct {
	model string
}

var _ llms.Model = (*EchoModel)(nil)

// NewEchoModel returns an offline model for local runs and tests.
func NewEchoModel(model string) *EchoModel {
	return &EchoModel{model: model}
}

// GenerateContent implements llms.Model.
func (m *EchoModel) GenerateContent(
	ctx context.Context,
	messages []llms.MessageContent,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	var opts llms.CallOptions
	for _, opt := range options {
		opt(&opts)
	}
	reply := fmt.Sprintf("Mock response for: %s", lastHumanText(messages))
	if opts.StreamingFunc != nil {
		words := strings.SplitAfter(reply, " ")
		for _, word := range words {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if err := opts.StreamingFunc(ctx, []byte(word)); err != nil {
				return nil, err
			}
		}
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: reply, StopReason: "stop"}},
	}, nil
}

// Call implements the legacy single-prompt interface.
func (m *EchoModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func lastHumanText(messages []llms.MessageContent) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != llms.ChatMessageTypeHuman {
			continue
		}
		var sb strings.Builder
		for _, part := range messages[i].Parts {
			if text, ok := part.(llms.TextContent); ok {
				sb.WriteString(text.Text)
			}
		}
		return sb.String()
	}
	return ""
}
