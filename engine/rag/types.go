package rag

import (
	"iter"
	"time"

	"github.com/compozy/docrag/engine/document"
)

// Metadata keys stored with every chunk vector.
const (
	MetaDocumentID = "documentId"
	MetaFileName   = "fileName"
	MetaUploadedAt = "uploadedAt"
	MetaChunkIndex = "chunkIndex"
)

// NoRelevantContentMarker replaces the context blob when retrieval finds nothing.
const NoRelevantContentMarker = "No relevant documents found."

// IngestInput is one uploaded file.
type IngestInput struct {
	Content     []byte
	FileName    string
	FileSize    int64
	DocumentID  string
	Description string
}

// Query selects chunks similar to a question.
type Query struct {
	Question   string
	MaxResults int
	MinScore   float64
	DocumentID string
}

// Result is one retrieved chunk.
type Result struct {
	ChunkID    string  `json:"chunkId"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
	FileName   string  `json:"fileName"`
	DocumentID string  `json:"documentId"`
	ChunkIndex int     `json:"chunkIndex"`
}

// SearchResult is a retrieval plus the formatted context blob.
type SearchResult struct {
	Question        string   `json:"question"`
	DocumentID      string   `json:"documentId,omitempty"`
	MinScore        float64  `json:"minScore"`
	RelevantContent string   `json:"relevantContent"`
	Results         []Result `json:"results"`
}

// AnswerInput is a question, optionally scoped to one document.
type AnswerInput struct {
	Question   string
	DocumentID string
}

// Answer is a generated reply with the chunks it was grounded on.
type Answer struct {
	Text              string   `json:"answer"`
	Question          string   `json:"originalQuestion"`
	DocumentID        string   `json:"documentId,omitempty"`
	Sources           []Result `json:"sources"`
	NoRelevantContent bool     `json:"noRelevantContent"`
	ContextTokens     int      `json:"contextTokens"`
}

// AnswerStream carries the retrieval outcome and a lazy sequence of answer
// fragments. Only the first range over Fragments calls the generator; later
// ones yield llm.ErrStreamConsumed.
type AnswerStream struct {
	Question          string
	DocumentID        string
	Sources           []Result
	NoRelevantContent bool
	ContextTokens     int
	Fragments         iter.Seq2[string, error]
}

// ListFilter narrows the active document listing.
type ListFilter struct {
	FileType      string
	UploadedAfter *time.Time
}

// Stats is re-exported for callers that only import rag.
type Stats = document.Stats
