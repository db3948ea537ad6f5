package rag

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/compozy/docrag/engine/infra/monitoring/metrics"
)

var (
	metricsOnce        sync.Once
	metricsInitErr     error
	ingestDurationHist metric.Float64Histogram
	chunkCounter       metric.Int64Counter
	orphanCounter      metric.Int64Counter
	retrievalLatency   metric.Float64Histogram
	retrievalEmpty     metric.Int64Counter
)

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("docrag.rag")
		var err error
		if ingestDurationHist, err = meter.Float64Histogram(
			metrics.MetricNameWithSubsystem("rag", "ingest_duration_seconds"),
			metric.WithDescription("End-to-end document ingestion latency"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(metrics.ProviderDurationBuckets...),
		); err != nil {
			metricsInitErr = err
			return
		}
		if chunkCounter, err = meter.Int64Counter(
			metrics.MetricNameWithSubsystem("rag", "chunks_ingested_total"),
			metric.WithDescription("Chunks embedded and stored"),
		); err != nil {
			metricsInitErr = err
			return
		}
		if orphanCounter, err = meter.Int64Counter(
			metrics.MetricNameWithSubsystem("rag", "orphaned_vectors_total"),
			metric.WithDescription("Vectors left without a document record after a failed ingest"),
		); err != nil {
			metricsInitErr = err
			return
		}
		if retrievalLatency, err = meter.Float64Histogram(
			metrics.MetricNameWithSubsystem("rag", "retrieval_duration_seconds"),
			metric.WithDescription("Question embedding plus similarity search latency"),
			metric.WithUnit("s"),
			metric.WithExplicitBucketBoundaries(metrics.ProviderDurationBuckets...),
		); err != nil {
			metricsInitErr = err
			return
		}
		retrievalEmpty, metricsInitErr = meter.Int64Counter(
			metrics.MetricNameWithSubsystem("rag", "retrieval_empty_total"),
			metric.WithDescription("Retrievals that returned no chunks"),
		)
	})
	return metricsInitErr
}

func recordIngest(ctx context.Context, fileType string, chunks int, d time.Duration) {
	if ensureMetrics() != nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("file_type", fileType))
	ingestDurationHist.Record(ctx, d.Seconds(), attrs)
	if chunks > 0 {
		chunkCounter.Add(ctx, int64(chunks), attrs)
	}
}

func recordOrphans(ctx context.Context, count int) {
	if count <= 0 || ensureMetrics() != nil {
		return
	}
	orphanCounter.Add(ctx, int64(count))
}

func recordRetrieval(ctx context.Context, results int, d time.Duration) {
	if ensureMetrics() != nil {
		return
	}
	retrievalLatency.Record(ctx, d.Seconds())
	if results == 0 {
		retrievalEmpty.Add(ctx, 1)
	}
}
