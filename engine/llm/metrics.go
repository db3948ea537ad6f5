package llm

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/compozy/docrag/engine/infra/monitoring/metrics"
)

const (
	modeGenerate = "generate"
	modeStream   = "stream"
)

var (
	metricsOnce       sync.Once
	metricsInitErr    error
	generationLatency metric.Float64Histogram
	generationErrors  metric.Int64Counter
)

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("docrag.llm")
		var err error
		generationLatency, err = meter.Float64Histogram(
			metrics.MetricNameWithSubsystem("llm", "request_duration_seconds"),
			metric.WithDescription("Latency of chat model calls"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(metrics.ProviderDurationBuckets...),
		)
		if err != nil {
			metricsInitErr = err
			return
		}
		generationErrors, err = meter.Int64Counter(
			metrics.MetricNameWithSubsystem("llm", "errors_total"),
			metric.WithDescription("Chat model failures by error code"),
		)
		metricsInitErr = err
	})
	return metricsInitErr
}

func recordGeneration(ctx context.Context, provider Provider, model, mode string, d time.Duration, err error) {
	if ensureMetrics() != nil {
		return
	}
	outcome := "success"
	switch {
	case errors.Is(err, context.Canceled):
		outcome = "canceled"
	case err != nil:
		outcome = "error"
	}
	generationLatency.Record(ctx, d.Seconds(), metric.WithAttributes(
		attribute.String("provider", string(provider)),
		attribute.String("model", model),
		attribute.String("mode", mode),
		attribute.String("outcome", outcome),
	))
	if outcome != "error" {
		return
	}
	code := ErrorCode(err)
	if code == "" {
		code = ErrCodeProvider
	}
	generationErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", string(provider)),
		attribute.String("code", code),
	))
}
