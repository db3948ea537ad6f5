package rag

import (
	"errors"
	"fmt"
)

// Sentinels matched by the typed errors below through errors.Is.
var (
	ErrValidation        = errors.New("invalid request")
	ErrDuplicateDocument = errors.New("document already exists")
	ErrParse             = errors.New("document could not be parsed")
	ErrEmbedding         = errors.New("embedding failed")
	ErrGeneration        = errors.New("answer generation failed")
	ErrNotFound          = errors.New("document not found")
)

// ValidationError reports a rejected input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// DuplicateDocumentError is returned when an id was already used, even by a
// soft-deleted document.
type DuplicateDocumentError struct {
	ID string
}

func (e *DuplicateDocumentError) Error() string {
	return fmt.Sprintf("document %q already exists", e.ID)
}

func (e *DuplicateDocumentError) Is(target error) bool { return target == ErrDuplicateDocument }

// ParseError wraps a failure to extract text from an upload.
type ParseError struct {
	FileName string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %q: %v", e.FileName, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

func (e *ParseError) Is(target error) bool { return target == ErrParse }

// EmbeddingError wraps an embedding provider failure.
type EmbeddingError struct {
	Err error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

func (e *EmbeddingError) Is(target error) bool { return target == ErrEmbedding }

// GenerationError wraps a chat model failure.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("answer generation failed: %v", e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

func (e *GenerationError) Is(target error) bool { return target == ErrGeneration }

// NotFoundError is returned when no document record exists for an id.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("document %q not found", e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }
