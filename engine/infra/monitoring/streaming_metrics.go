package monitoring

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/compozy/docrag/engine/infra/monitoring/metrics"
)

var (
	streamDurationBuckets   = []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300}
	firstFragmentBuckets    = []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10}
	streamKindAttributeName = "kind"
)

// StreamingMetrics tracks SSE answers: open streams, their duration, time to the
// first fragment, fragments sent and failures. A nil receiver records nothing.
type StreamingMetrics struct {
	active    metric.Int64UpDownCounter
	duration  metric.Float64Histogram
	firstByte metric.Float64Histogram
	fragments metric.Int64Counter
	failures  metric.Int64Counter
}

func NewStreamingMetrics(meter metric.Meter) (*StreamingMetrics, error) {
	m := &StreamingMetrics{}
	var err error
	if m.active, err = meter.Int64UpDownCounter(
		metrics.MetricNameWithSubsystem("stream", "active"),
		metric.WithDescription("Open SSE streams by kind"),
	); err != nil {
		return nil, fmt.Errorf("create active streams counter: %w", err)
	}
	if m.duration, err = meter.Float64Histogram(
		metrics.MetricNameWithSubsystem("stream", "duration_seconds"),
		metric.WithDescription("Lifetime of SSE streams"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(streamDurationBuckets...),
	); err != nil {
		return nil, fmt.Errorf("create stream duration histogram: %w", err)
	}
	if m.firstByte, err = meter.Float64Histogram(
		metrics.MetricNameWithSubsystem("stream", "first_fragment_seconds"),
		metric.WithDescription("Delay between stream start and the first generated fragment"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(firstFragmentBuckets...),
	); err != nil {
		return nil, fmt.Errorf("create first fragment histogram: %w", err)
	}
	if m.fragments, err = meter.Int64Counter(
		metrics.MetricNameWithSubsystem("stream", "fragments_total"),
		metric.WithDescription("Fragments written to SSE streams"),
	); err != nil {
		return nil, fmt.Errorf("create stream fragments counter: %w", err)
	}
	if m.failures, err = meter.Int64Counter(
		metrics.MetricNameWithSubsystem("stream", "errors_total"),
		metric.WithDescription("SSE streams that ended with an error, by reason"),
	); err != nil {
		return nil, fmt.Errorf("create stream errors counter: %w", err)
	}
	return m, nil
}

func kindAttr(kind string) metric.MeasurementOption {
	return metric.WithAttributes(attribute.String(streamKindAttributeName, kind))
}

func (m *StreamingMetrics) RecordOpen(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.active.Add(ctx, 1, kindAttr(kind))
}

func (m *StreamingMetrics) RecordFirstFragment(ctx context.Context, kind string, latency time.Duration) {
	if m == nil {
		return
	}
	m.firstByte.Record(ctx, latency.Seconds(), kindAttr(kind))
}

func (m *StreamingMetrics) RecordFragment(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.fragments.Add(ctx, 1, kindAttr(kind))
}

// RecordClose ends a stream. A non-empty reason counts it as failed.
func (m *StreamingMetrics) RecordClose(ctx context.Context, kind string, elapsed time.Duration, reason string) {
	if m == nil {
		return
	}
	m.active.Add(ctx, -1, kindAttr(kind))
	m.duration.Record(ctx, elapsed.Seconds(), kindAttr(kind))
	if reason != "" {
		m.failures.Add(ctx, 1, metric.WithAttributes(
			attribute.String(streamKindAttributeName, kind),
			attribute.String("reason", reason),
		))
	}
}
