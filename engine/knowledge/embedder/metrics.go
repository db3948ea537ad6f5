package embedder

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/compozy/docrag/engine/infra/monitoring/metrics"
)

const (
	errorTypeServer       = "server_error"
	errorTypeTimeout      = "timeout"
	errorTypeRateLimit    = "rate_limit"
	errorTypeAuth         = "auth"
	errorTypeInvalidInput = "invalid_input"
)

var (
	metricsOnce      sync.Once
	metricsInitErr   error
	embedLatency     metric.Float64Histogram
	embedTextCounter metric.Int64Counter
	embedErrors      metric.Int64Counter
)

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("docrag.embedder")
		var err error
		embedLatency, err = meter.Float64Histogram(
			metrics.MetricNameWithSubsystem("embedder", "request_duration_seconds"),
			metric.WithDescription("Latency of embedding provider calls"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(metrics.ProviderDurationBuckets...),
		)
		if err != nil {
			metricsInitErr = err
			return
		}
		embedTextCounter, err = meter.Int64Counter(
			metrics.MetricNameWithSubsystem("embedder", "texts_total"),
			metric.WithDescription("Number of texts embedded"),
		)
		if err != nil {
			metricsInitErr = err
			return
		}
		embedErrors, err = meter.Int64Counter(
			metrics.MetricNameWithSubsystem("embedder", "errors_total"),
			metric.WithDescription("Embedding provider errors by category"),
		)
		metricsInitErr = err
	})
	return metricsInitErr
}

func recordEmbedCall(ctx context.Context, provider, model string, texts int, d time.Duration) {
	if err := ensureMetrics(); err != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
	)
	embedLatency.Record(ctx, d.Seconds(), attrs)
	embedTextCounter.Add(ctx, int64(texts), attrs)
}

func recordEmbedError(ctx context.Context, provider, model, errorType string) {
	if err := ensureMetrics(); err != nil {
		return
	}
	embedErrors.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
		attribute.String("error_type", errorType),
	))
}
