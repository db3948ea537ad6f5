package llm

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/compozy/docrag/pkg/logger"
)

// ErrEmptyResponse is returned when the provider answers without any choice.
var ErrEmptyResponse = errors.New("empty response from model")

// Adapter implements Generator on top of a langchaingo model.
type Adapter struct {
	provider    Provider
	model       string
	temperature float64
	maxTokens   int
	impl        llms.Model
}

var _ Generator = (*Adapter)(nil)

// New builds the provider model described by cfg.
func New(ctx context.Context, cfg *Config) (*Adapter, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	impl, err := newModel(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("llm %s: failed to create model: %w", cfg.Provider, err)
	}
	return Wrap(cfg, impl)
}

// Wrap adapts an existing langchaingo model.
func Wrap(cfg *Config, impl llms.Model) (*Adapter, error) {
	if cfg == nil {
		return nil, errors.New("llm config is required")
	}
	if impl == nil {
		return nil, fmt.Errorf("llm %s: model implementation is required", cfg.Provider)
	}
	return &Adapter{
		provider:    cfg.Provider,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		impl:        impl,
	}, nil
}

// Model returns the configured model name.
func (a *Adapter) Model() string {
	return a.model
}

// Generate returns the full completion for req.
func (a *Adapter) Generate(ctx context.Context, req *Request) (string, error) {
	start := time.Now()
	resp, err := a.impl.GenerateContent(ctx, convertMessages(req), a.callOptions(req)...)
	if err != nil {
		wrapped := classifyError(string(a.provider), err)
		recordGeneration(ctx, a.provider, a.model, modeGenerate, time.Since(start), wrapped)
		return "", wrapped
	}
	if resp == nil || len(resp.Choices) == 0 {
		recordGeneration(ctx, a.provider, a.model, modeGenerate, time.Since(start), ErrEmptyResponse)
		return "", ErrEmptyResponse
	}
	recordGeneration(ctx, a.provider, a.model, modeGenerate, time.Since(start), nil)
	logger.FromContext(ctx).Debug(
		"Generated completion",
		"provider", a.provider,
		"model", a.model,
		"duration", time.Since(start),
	)
	return resp.Choices[0].Content, nil
}

// Stream runs the provider call on its own goroutine and yields fragments as
// they arrive. Providers that ignore the streaming callback yield their final
// content as a single fragment.
func (a *Adapter) Stream(ctx context.Context, req *Request) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		streamCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		start := time.Now()
		fragments := make(chan string)
		done := make(chan error, 1)
		go a.produce(streamCtx, req, fragments, done)
		for fragment := range fragments {
			if !yield(fragment, nil) {
				recordGeneration(ctx, a.provider, a.model, modeStream, time.Since(start), context.Canceled)
				return
			}
		}
		err := <-done
		recordGeneration(ctx, a.provider, a.model, modeStream, time.Since(start), err)
		if err != nil {
			yield("", err)
		}
	}
}

func (a *Adapter) produce(ctx context.Context, req *Request, fragments chan<- string, done chan<- error) {
	defer close(fragments)
	streamed := false
	send := func(text string) error {
		select {
		case fragments <- text:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	opts := append(a.callOptions(req), llms.WithStreamingFunc(func(_ context.Context, chunk []byte) error {
		if len(chunk) == 0 {
			return nil
		}
		streamed = true
		return send(string(chunk))
	}))
	resp, err := a.impl.GenerateContent(ctx, convertMessages(req), opts...)
	switch {
	case err != nil:
		done <- classifyError(string(a.provider), err)
	case resp == nil || len(resp.Choices) == 0:
		done <- ErrEmptyResponse
	case !streamed && resp.Choices[0].Content != "":
		done <- send(resp.Choices[0].Content)
	default:
		done <- nil
	}
}

func (a *Adapter) callOptions(req *Request) []llms.CallOption {
	opts := make([]llms.CallOption, 0, 2)
	temperature := a.temperature
	if req.Temperature > 0 {
		temperature = req.Temperature
	}
	if temperature > 0 {
		opts = append(opts, llms.WithTemperature(temperature))
	}
	maxTokens := a.maxTokens
	if req.MaxTokens > 0 {
		maxTokens = req.MaxTokens
	}
	if maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(maxTokens))
	}
	return opts
}

func convertMessages(req *Request) []llms.MessageContent {
	messages := make([]llms.MessageContent, 0, len(req.Messages)+1)
	if strings.TrimSpace(req.SystemPrompt) != "" {
		messages = append(messages, llms.TextParts(llms.ChatMessageTypeSystem, req.SystemPrompt))
	}
	for _, msg := range req.Messages {
		messages = append(messages, llms.TextParts(mapRole(msg.Role), msg.Content))
	}
	return messages
}

func mapRole(role Role) llms.ChatMessageType {
	switch role {
	case RoleSystem:
		return llms.ChatMessageTypeSystem
	case RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
