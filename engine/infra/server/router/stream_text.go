package router

import (
	"context"
	"errors"
	"iter"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/compozy/docrag/engine/infra/monitoring"
)

// TextStream describes one streamed generation.
type TextStream struct {
	Kind      string
	Subject   string
	Metrics   *monitoring.StreamingMetrics
	Fragments iter.Seq2[string, error]
	// Done builds the payload of the final done event.
	Done func() any
	// ErrorMessage maps a generation failure to the client-facing message.
	ErrorMessage func(error) string
}

// StreamText writes each fragment as a chunk event, then done or error.
// Breaking out on a write failure stops the producer.
func StreamText(c *gin.Context, ts *TextStream) {
	stream := StartSSE(c.Writer)
	if stream == nil {
		RespondProblemWithCode(c, http.StatusInternalServerError, ErrInternalCode, "failed to initialize stream")
		return
	}
	telemetry := NewStreamTelemetry(c.Request.Context(), ts.Kind, ts.Subject, ts.Metrics)
	var seq int64
	for fragment, err := range ts.Fragments {
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				telemetry.Close(StreamReasonContextCanceled, nil)
				return
			}
			seq++
			msg := err.Error()
			if ts.ErrorMessage != nil {
				msg = ts.ErrorMessage(err)
			}
			_ = stream.WriteEvent(seq, EventError, gin.H{"success": false, "message": msg})
			telemetry.Close(StreamReasonGeneration, err)
			return
		}
		seq++
		if err := stream.WriteEvent(seq, EventChunk, gin.H{"text": fragment}); err != nil {
			telemetry.Close(StreamReasonWriteFailed, nil)
			return
		}
		telemetry.RecordFragment()
	}
	var done any = gin.H{"success": true}
	if ts.Done != nil {
		done = ts.Done()
	}
	seq++
	if err := stream.WriteEvent(seq, EventDone, done); err != nil {
		telemetry.Close(StreamReasonWriteFailed, nil)
		return
	}
	telemetry.Close(StreamReasonCompleted, nil)
}
