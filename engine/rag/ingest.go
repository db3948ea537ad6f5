package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/compozy/docrag/engine/document"
	"github.com/compozy/docrag/engine/knowledge/chunk"
	"github.com/compozy/docrag/engine/knowledge/vectordb"
	"github.com/compozy/docrag/pkg/logger"
)

// Ingest parses, chunks, embeds and stores a file, then records its metadata.
// Vectors are written before the metadata row; vectors already stored when a
// later step fails are left in place and reported as orphaned.
func (s *Service) Ingest(ctx context.Context, in IngestInput) (*document.Record, error) {
	if len(in.Content) == 0 {
		return nil, invalid("file", "file content must not be empty")
	}
	fileName := strings.TrimSpace(in.FileName)
	if fileName == "" {
		return nil, invalid("fileName", "file name must not be empty")
	}
	docID := strings.TrimSpace(in.DocumentID)
	if len(docID) > maxDocumentIDLength {
		return nil, invalid("documentId", "must be at most %d characters", maxDocumentIDLength)
	}
	if docID == "" {
		docID = newDocumentID(fileName)
	}
	log := logger.FromContext(ctx).With("document_id", docID, "file", fileName)
	start := time.Now()

	exists, err := s.documents.Exists(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("rag: check document %q: %w", docID, err)
	}
	if exists {
		return nil, &DuplicateDocumentError{ID: docID}
	}
	parsed, err := s.parser.Parse(ctx, fileName, in.Content)
	if err != nil {
		return nil, &ParseError{FileName: fileName, Err: err}
	}
	chunks, err := s.chunker.Split(parsed.Text)
	if err != nil {
		return nil, fmt.Errorf("rag: chunk %q: %w", fileName, err)
	}
	now := s.now().UTC()
	stored, err := s.storeChunks(ctx, docID, fileName, now, chunks)
	if err != nil {
		s.warnOrphans(ctx, log, stored, err)
		return nil, err
	}
	size := in.FileSize
	if size <= 0 {
		size = int64(len(in.Content))
	}
	rec := document.NewRecord(docID, fileName, len(chunks), size, strings.TrimSpace(in.Description), now)
	if err := s.documents.Create(ctx, rec); err != nil {
		s.warnOrphans(ctx, log, stored, err)
		if errors.Is(err, document.ErrAlreadyExists) {
			return nil, &DuplicateDocumentError{ID: docID}
		}
		return nil, fmt.Errorf("rag: save document %q: %w", docID, err)
	}
	recordIngest(ctx, rec.FileType, len(chunks), time.Since(start))
	log.Info(
		"Document ingested",
		"chunks", len(chunks),
		"format", parsed.Format,
		"bytes", size,
		"duration", time.Since(start),
	)
	return rec, nil
}

// storeChunks embeds and upserts chunks batch by batch, preserving order, and
// returns how many vectors were written.
func (s *Service) storeChunks(
	ctx context.Context,
	docID, fileName string,
	uploadedAt time.Time,
	chunks []chunk.Chunk,
) (int, error) {
	batchSize := max(s.embedder.BatchSize(), 1)
	stored := 0
	for begin := 0; begin < len(chunks); begin += batchSize {
		batch := chunks[begin:min(begin+batchSize, len(chunks))]
		texts := make([]string, len(batch))
		for i := range batch {
			texts[i] = batch[i].Text
		}
		vectors, err := s.embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return stored, &EmbeddingError{Err: err}
		}
		if len(vectors) != len(batch) {
			return stored, &EmbeddingError{
				Err: fmt.Errorf("received %d embeddings for %d chunks", len(vectors), len(batch)),
			}
		}
		records := make([]vectordb.Record, len(batch))
		for i := range batch {
			records[i] = vectordb.Record{
				ID:        chunkID(docID, batch[i].Index),
				Text:      batch[i].Text,
				Embedding: vectors[i],
				Metadata: map[string]any{
					MetaDocumentID: docID,
					MetaFileName:   fileName,
					MetaUploadedAt: uploadedAt.Format(time.RFC3339),
					MetaChunkIndex: batch[i].Index,
				},
			}
		}
		if err := s.store.Upsert(ctx, records); err != nil {
			return stored, fmt.Errorf("rag: store vectors for %q: %w", docID, err)
		}
		stored += len(records)
	}
	return stored, nil
}

func (s *Service) warnOrphans(ctx context.Context, log logger.Logger, stored int, cause error) {
	if stored == 0 {
		return
	}
	recordOrphans(ctx, stored)
	log.Warn(
		"Ingest failed after vectors were stored; vectors are orphaned",
		"orphaned_chunks", stored,
		"error", cause,
	)
}
