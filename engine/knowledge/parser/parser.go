package parser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/compozy/docrag/pkg/logger"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrCorruptDocument   = errors.New("corrupt document")
)

// Format names the extraction strategy chosen for a file.
type Format string

const (
	FormatText Format = "text"
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
)

const docxMIME = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Document is the plain text extracted from an uploaded file.
type Document struct {
	Text     string
	MIMEType string
	Format   Format
}

// Parser converts raw file bytes into plain text.
type Parser interface {
	Parse(ctx context.Context, fileName string, content []byte) (*Document, error)
}

type extractor func(ctx context.Context, content []byte) (string, error)

// Service picks an extractor from the sniffed MIME type and the file extension.
type Service struct {
	extractors map[Format]extractor
}

// New returns a parser supporting text, markdown, csv, json, html, pdf and docx files.
func New() *Service {
	return &Service{
		extractors: map[Format]extractor{
			FormatText: extractText,
			FormatHTML: extractHTML,
			FormatPDF:  extractPDF,
			FormatDOCX: extractDOCX,
		},
	}
}

// Parse extracts text from content. An empty extraction is not an error.
func (s *Service) Parse(ctx context.Context, fileName string, content []byte) (*Document, error) {
	mime := DetectMIME(content)
	format, ok := resolveFormat(fileName, mime)
	if !ok {
		return nil, fmt.Errorf("parser: %s (%s): %w", fileName, mime, ErrUnsupportedFormat)
	}
	text, err := s.extractors[format](ctx, content)
	if err != nil {
		return nil, fmt.Errorf("parser: %s: %w", fileName, err)
	}
	logger.FromContext(ctx).Debug(
		"Document parsed",
		"file", fileName,
		"mime", mime,
		"format", string(format),
		"chars", len([]rune(text)),
	)
	return &Document{Text: text, MIMEType: mime, Format: format}, nil
}

// DetectMIME sniffs content with the stdlib first and falls back to mimetype
// when the stdlib answer is ambiguous.
func DetectMIME(head []byte) string {
	if len(head) == 0 {
		return "text/plain; charset=utf-8"
	}
	mt := http.DetectContentType(head)
	if mt != "application/octet-stream" && mt != "application/zip" {
		return mt
	}
	return mimetype.Detect(head).String()
}

var textExtensions = map[string]struct{}{
	".txt": {}, ".md": {}, ".markdown": {}, ".csv": {}, ".tsv": {}, ".json": {},
	".yaml": {}, ".yml": {}, ".xml": {}, ".log": {}, ".rst": {},
}

func resolveFormat(fileName, mime string) (Format, bool) {
	ext := strings.ToLower(filepath.Ext(fileName))
	base := strings.ToLower(strings.TrimSpace(strings.SplitN(mime, ";", 2)[0]))
	switch {
	case strings.HasPrefix(base, "image/") || strings.HasPrefix(base, "audio/") || strings.HasPrefix(base, "video/"):
		return "", false
	case base == "application/pdf" || ext == ".pdf":
		return FormatPDF, true
	case base == docxMIME || ext == ".docx":
		return FormatDOCX, true
	case base == "text/html" || ext == ".html" || ext == ".htm":
		return FormatHTML, true
	case strings.HasPrefix(base, "text/"):
		return FormatText, true
	case base == "application/json" || base == "application/xml" || base == "application/csv":
		return FormatText, true
	}
	if _, ok := textExtensions[ext]; ok {
		return FormatText, true
	}
	return "", false
}
