package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/compozy/docrag/cli/api"
	"github.com/compozy/docrag/engine/document"
	"github.com/compozy/docrag/engine/infra/server"
	"github.com/compozy/docrag/engine/rag"
)

// Backend is the document surface shared by local and remote execution.
type Backend interface {
	Ingest(ctx context.Context, in api.IngestInput) (*document.Record, error)
	Ask(ctx context.Context, in rag.AnswerInput) (*rag.Answer, error)
	AskStream(ctx context.Context, in rag.AnswerInput, onText func(string) error) (*rag.Answer, error)
	Search(ctx context.Context, q rag.Query) (*rag.SearchResult, error)
	ListDocuments(ctx context.Context, filter rag.ListFilter) ([]*document.Record, error)
	GetDocument(ctx context.Context, id string) (*document.Record, error)
	DeleteDocument(ctx context.Context, id string) error
	Stats(ctx context.Context) (*rag.Stats, error)
	Close()
}

type localBackend struct {
	services *server.Services
}

func (b *localBackend) rag() *rag.Service { return b.services.State.RAG }

func (b *localBackend) Ingest(ctx context.Context, in api.IngestInput) (*document.Record, error) {
	info, err := os.Stat(in.Path)
	if err != nil {
		return nil, err
	}
	maxBytes := b.services.State.Config.Server.MaxUploadBytes
	if maxBytes > 0 && info.Size() > maxBytes {
		return nil, fmt.Errorf("%s is %d bytes, above the %d byte upload limit", in.Path, info.Size(), maxBytes)
	}
	content, err := os.ReadFile(in.Path)
	if err != nil {
		return nil, err
	}
	return b.rag().Ingest(ctx, rag.IngestInput{
		Content:     content,
		FileName:    filepath.Base(in.Path),
		FileSize:    info.Size(),
		DocumentID:  in.DocumentID,
		Description: in.Description,
	})
}

func (b *localBackend) Ask(ctx context.Context, in rag.AnswerInput) (*rag.Answer, error) {
	return b.rag().Answer(ctx, in)
}

func (b *localBackend) AskStream(
	ctx context.Context,
	in rag.AnswerInput,
	onText func(string) error,
) (*rag.Answer, error) {
	stream, err := b.rag().AnswerStream(ctx, in)
	if err != nil {
		return nil, err
	}
	answer := &rag.Answer{
		Question:          stream.Question,
		DocumentID:        stream.DocumentID,
		Sources:           stream.Sources,
		NoRelevantContent: stream.NoRelevantContent,
		ContextTokens:     stream.ContextTokens,
	}
	for fragment, err := range stream.Fragments {
		if err != nil {
			return nil, err
		}
		answer.Text += fragment
		if err := onText(fragment); err != nil {
			return nil, err
		}
	}
	return answer, nil
}

func (b *localBackend) Search(ctx context.Context, q rag.Query) (*rag.SearchResult, error) {
	return b.rag().Search(ctx, q)
}

func (b *localBackend) ListDocuments(ctx context.Context, filter rag.ListFilter) ([]*document.Record, error) {
	return b.rag().ListDocuments(ctx, filter)
}

func (b *localBackend) GetDocument(ctx context.Context, id string) (*document.Record, error) {
	return b.rag().GetDocument(ctx, id)
}

func (b *localBackend) DeleteDocument(ctx context.Context, id string) error {
	return b.rag().DeleteDocument(ctx, id)
}

func (b *localBackend) Stats(ctx context.Context) (*rag.Stats, error) {
	return b.rag().Stats(ctx)
}

func (b *localBackend) Close() { b.services.Close() }

type remoteBackend struct {
	client *api.Client
}

func (b *remoteBackend) Ingest(ctx context.Context, in api.IngestInput) (*document.Record, error) {
	return b.client.Ingest(ctx, in)
}

func (b *remoteBackend) Ask(ctx context.Context, in rag.AnswerInput) (*rag.Answer, error) {
	return b.client.Ask(ctx, in)
}

func (b *remoteBackend) AskStream(
	ctx context.Context,
	in rag.AnswerInput,
	onText func(string) error,
) (*rag.Answer, error) {
	return b.client.AskStream(ctx, in, onText)
}

func (b *remoteBackend) Search(ctx context.Context, q rag.Query) (*rag.SearchResult, error) {
	return b.client.Search(ctx, q)
}

func (b *remoteBackend) ListDocuments(ctx context.Context, filter rag.ListFilter) ([]*document.Record, error) {
	return b.client.ListDocuments(ctx, filter)
}

func (b *remoteBackend) GetDocument(ctx context.Context, id string) (*document.Record, error) {
	return b.client.GetDocument(ctx, id)
}

func (b *remoteBackend) DeleteDocument(ctx context.Context, id string) error {
	return b.client.DeleteDocument(ctx, id)
}

func (b *remoteBackend) Stats(ctx context.Context) (*rag.Stats, error) {
	return b.client.Stats(ctx)
}

func (b *remoteBackend) Close() {}
