package routes

import "strings"

// DefaultBase is the API prefix used when no base path is configured.
const DefaultBase = "/api/v1"

// Base normalizes a configured base path (e.g., "api/v1/" becomes "/api/v1").
func Base(basePath string) string {
	trimmed := strings.Trim(strings.TrimSpace(basePath), "/")
	if trimmed == "" {
		return DefaultBase
	}
	return "/" + trimmed
}

// Health returns the unversioned health path.
func Health() string { return "/health" }

// RAG returns the retrieval routes base (e.g., "/api/v1/rag").
func RAG(base string) string { return base + "/rag" }

// Documents returns the document lifecycle base (e.g., "/api/v1/rag/documents").
func Documents(base string) string { return RAG(base) + "/documents" }

// Chat returns the conversation routes base (e.g., "/api/v1/chat").
func Chat(base string) string { return base + "/chat" }

// Assistant returns the template routes base (e.g., "/api/v1/assistant").
func Assistant(base string) string { return base + "/assistant" }

// Stream returns the streaming template base (e.g., "/api/v1/stream").
func Stream(base string) string { return base + "/stream" }
