package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
)

// SSE event names shared by the streaming endpoints.
const (
	EventChunk = "chunk"
	EventDone  = "done"
	EventError = "error"
)

var errStreamClosed = errors.New("stream closed")

// SSEStream writes text/event-stream frames and flushes after each one.
type SSEStream struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
	closed  bool
}

// StartSSE sends the stream headers. It returns nil when w cannot flush.
func StartSSE(w http.ResponseWriter) *SSEStream {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil
	}
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()
	return &SSEStream{w: w, flusher: flusher}
}

// WriteEvent writes one frame. data is JSON encoded; id <= 0 omits the id line.
func (s *SSEStream) WriteEvent(id int64, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", event, err)
	}
	var b strings.Builder
	if id > 0 {
		fmt.Fprintf(&b, "id: %d\n", id)
	}
	if event != "" {
		fmt.Fprintf(&b, "event: %s\n", event)
	}
	fmt.Fprintf(&b, "data: %s\n\n", payload)
	return s.write(b.String())
}

// WriteHeartbeat writes a comment line that keeps idle proxies from closing the stream.
func (s *SSEStream) WriteHeartbeat() error {
	return s.write(": ping\n\n")
}

func (s *SSEStream) write(frame string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errStreamClosed
	}
	if _, err := s.w.Write([]byte(frame)); err != nil {
		s.closed = true
		return err
	}
	s.flusher.Flush()
	return nil
}
