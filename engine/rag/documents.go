package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/compozy/docrag/engine/document"
	"github.com/compozy/docrag/pkg/logger"
)

// ListDocuments returns active documents, newest upload first.
func (s *Service) ListDocuments(ctx context.Context, filter ListFilter) ([]*document.Record, error) {
	fileType := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(filter.FileType), "."))
	var (
		records []*document.Record
		err     error
	)
	switch {
	case fileType != "":
		records, err = s.documents.ListByFileType(ctx, fileType)
	case filter.UploadedAfter != nil:
		records, err = s.documents.ListUploadedAfter(ctx, *filter.UploadedAfter)
	default:
		records, err = s.documents.ListActive(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("rag: list documents: %w", err)
	}
	if fileType != "" && filter.UploadedAfter != nil {
		after := filter.UploadedAfter.UTC()
		kept := records[:0]
		for _, rec := range records {
			if rec.UploadedAt.After(after) {
				kept = append(kept, rec)
			}
		}
		records = kept
	}
	return records, nil
}

// GetDocument returns a document record in any state.
func (s *Service) GetDocument(ctx context.Context, id string) (*document.Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, invalid("documentId", "document id must not be empty")
	}
	rec, err := s.documents.Get(ctx, id)
	if errors.Is(err, document.ErrNotFound) {
		return nil, &NotFoundError{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("rag: get document %q: %w", id, err)
	}
	return rec, nil
}

// DeleteDocument soft-deletes a document. Its vectors stay in the store and
// are excluded from retrieval. Deleting an inactive document succeeds without
// changes.
func (s *Service) DeleteDocument(ctx context.Context, id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return invalid("documentId", "document id must not be empty")
	}
	err := s.documents.SoftDelete(ctx, id, s.now().UTC())
	if errors.Is(err, document.ErrNotFound) {
		return &NotFoundError{ID: id}
	}
	if err != nil {
		return fmt.Errorf("rag: delete document %q: %w", id, err)
	}
	logger.FromContext(ctx).Info("Document deactivated", "document_id", id)
	return nil
}

// Stats aggregates active documents and their chunks.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	stats, err := s.documents.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("rag: document stats: %w", err)
	}
	return stats, nil
}
