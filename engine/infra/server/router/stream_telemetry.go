package router

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/compozy/docrag/engine/infra/monitoring"
	"github.com/compozy/docrag/pkg/logger"
)

const streamTracerName = "docrag.stream"

// Close reasons reported by the streaming handlers.
const (
	StreamReasonCompleted       = "completed"
	StreamReasonContextCanceled = "context_canceled"
	StreamReasonWriteFailed     = "write_failed"
	StreamReasonGeneration      = "generation_failed"
)

// StreamTelemetry wraps one SSE response in a span, logs and metrics.
// All methods are safe on a nil receiver.
type StreamTelemetry struct {
	ctx        context.Context
	kind       string
	subject    string
	metrics    *monitoring.StreamingMetrics
	span       trace.Span
	start      time.Time
	fragments  int64
	sawFirst   bool
	closeOnce  sync.Once
	firstDelay time.Duration
}

// NewStreamTelemetry starts a span named stream.<kind>; subject identifies what is
// being streamed (a session id, a template, a question).
func NewStreamTelemetry(
	ctx context.Context,
	kind string,
	subject string,
	metrics *monitoring.StreamingMetrics,
) *StreamTelemetry {
	spanCtx, span := otel.Tracer(streamTracerName).Start(
		ctx,
		fmt.Sprintf("stream.%s", kind),
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("stream.kind", kind),
			attribute.String("stream.subject", subject),
		),
	)
	metrics.RecordOpen(spanCtx, kind)
	logger.FromContext(spanCtx).Debug("Stream opened", "kind", kind, "subject", subject)
	return &StreamTelemetry{
		ctx:     spanCtx,
		kind:    kind,
		subject: subject,
		metrics: metrics,
		span:    span,
		start:   time.Now(),
	}
}

func (t *StreamTelemetry) Context() context.Context {
	return t.ctx
}

// RecordFragment counts one written fragment and measures time to the first.
func (t *StreamTelemetry) RecordFragment() {
	if t == nil {
		return
	}
	t.fragments++
	if !t.sawFirst {
		t.sawFirst = true
		t.firstDelay = time.Since(t.start)
		t.metrics.RecordFirstFragment(t.ctx, t.kind, t.firstDelay)
	}
	t.metrics.RecordFragment(t.ctx, t.kind)
}

// Close records the outcome once. A nil err with a non-completed reason is a
// client disconnect and is not counted as a failure.
func (t *StreamTelemetry) Close(reason string, err error) {
	if t == nil {
		return
	}
	t.closeOnce.Do(func() {
		elapsed := time.Since(t.start)
		failure := ""
		if err != nil {
			failure = reason
		}
		t.metrics.RecordClose(t.ctx, t.kind, elapsed, failure)
		fields := []any{
			"kind", t.kind,
			"subject", t.subject,
			"reason", reason,
			"fragments", t.fragments,
			"duration", elapsed,
		}
		log := logger.FromContext(t.ctx)
		if err != nil {
			log.Error("Stream terminated with error", append(fields, "error", err)...)
			t.span.RecordError(err)
			t.span.SetStatus(codes.Error, err.Error())
		} else {
			log.Info("Stream closed", fields...)
			t.span.SetStatus(codes.Ok, reason)
		}
		attrs := []attribute.KeyValue{
			attribute.String("stream.reason", reason),
			attribute.Int64("stream.fragments", t.fragments),
			attribute.Float64("stream.duration_seconds", elapsed.Seconds()),
		}
		if t.sawFirst {
			attrs = append(attrs, attribute.Float64("stream.first_fragment_seconds", t.firstDelay.Seconds()))
		}
		t.span.SetAttributes(attrs...)
		t.span.End()
	})
}
