package rag

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/compozy/docrag/engine/llm"
	"github.com/compozy/docrag/pkg/logger"
	"github.com/compozy/docrag/pkg/tplengine"
)

// AnswerTemplate is the name of the user prompt template for grounded answers.
const AnswerTemplate = "rag_answer"

// AnswerSystemPrompt constrains the model to the retrieved excerpts.
const AnswerSystemPrompt = `You answer questions about the user's uploaded documents.
Use only the document excerpts provided in the message. Each excerpt starts with its file name and similarity score.
If the excerpts do not contain the answer, or the message says no relevant documents were found,
reply that the uploaded documents do not contain information about the question. Do not guess.
When you answer, name the files you relied on.`

const answerTemplateText = `Document excerpts:
{{ .context }}

Question: {{ .question }}`

func registerPrompts(engine *tplengine.TemplateEngine) error {
	if engine.Has(AnswerTemplate) {
		return nil
	}
	if err := engine.Register(tplengine.Definition{
		Name:        AnswerTemplate,
		Description: "Question answering grounded on retrieved document excerpts",
		Params:      []string{"context", "question"},
		Text:        answerTemplateText,
	}); err != nil {
		return fmt.Errorf("rag: register %s template: %w", AnswerTemplate, err)
	}
	return nil
}

type preparedAnswer struct {
	question   string
	documentID string
	sources    []Result
	tokens     int
	request    *llm.Request
}

func (s *Service) prepareAnswer(ctx context.Context, in AnswerInput) (*preparedAnswer, error) {
	q := Query{
		Question:   in.Question,
		MaxResults: s.settings.AskMaxResults,
		MinScore:   s.settings.AskMinScore,
		DocumentID: in.DocumentID,
	}
	results, err := s.Retrieve(ctx, q)
	if err != nil {
		return nil, err
	}
	blob := FormatContext(results)
	prepared := &preparedAnswer{
		question:   strings.TrimSpace(in.Question),
		documentID: strings.TrimSpace(in.DocumentID),
		sources:    results,
		tokens:     llm.CountTokens(blob),
	}
	prompt, err := s.prompts.Render(AnswerTemplate, map[string]any{
		"context":  blob,
		"question": prepared.question,
	})
	if err != nil {
		return nil, fmt.Errorf("rag: render answer prompt: %w", err)
	}
	prepared.request = llm.UserRequest(AnswerSystemPrompt, prompt)
	if len(results) == 0 {
		logger.FromContext(ctx).Info("No relevant content for question", "document_id", prepared.documentID)
	}
	return prepared, nil
}

// Answer retrieves context for the question and generates a grounded reply.
// An empty retrieval still reaches the model with the no-content marker and
// sets NoRelevantContent.
func (s *Service) Answer(ctx context.Context, in AnswerInput) (*Answer, error) {
	prepared, err := s.prepareAnswer(ctx, in)
	if err != nil {
		return nil, err
	}
	text, err := s.generator.Generate(ctx, prepared.request)
	if err != nil {
		return nil, &GenerationError{Err: err}
	}
	return &Answer{
		Text:              text,
		Question:          prepared.question,
		DocumentID:        prepared.documentID,
		Sources:           prepared.sources,
		NoRelevantContent: len(prepared.sources) == 0,
		ContextTokens:     prepared.tokens,
	}, nil
}

// AnswerStream performs retrieval eagerly and returns the reply as a lazy
// fragment sequence. Generator failures surface as *GenerationError pairs.
func (s *Service) AnswerStream(ctx context.Context, in AnswerInput) (*AnswerStream, error) {
	prepared, err := s.prepareAnswer(ctx, in)
	if err != nil {
		return nil, err
	}
	return &AnswerStream{
		Question:          prepared.question,
		DocumentID:        prepared.documentID,
		Sources:           prepared.sources,
		NoRelevantContent: len(prepared.sources) == 0,
		ContextTokens:     prepared.tokens,
		Fragments:         s.generationFragments(ctx, prepared.request),
	}, nil
}

func (s *Service) generationFragments(ctx context.Context, req *llm.Request) iter.Seq2[string, error] {
	return llm.SingleUse(func(yield func(string, error) bool) {
		for fragment, err := range s.generator.Stream(ctx, req) {
			if err != nil {
				yield("", &GenerationError{Err: err})
				return
			}
			if !yield(fragment, nil) {
				return
			}
		}
	})
}
