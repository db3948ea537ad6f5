package vectordb

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	monitoringmetrics "github.com/compozy/docrag/engine/infra/monitoring/metrics"
)

const labelUnknownValue = "unknown"

var (
	vectorMetricsOnce       sync.Once
	vectorMetricsErr        error
	vectorOpLatency         metric.Float64Histogram
	vectorResultsCount      metric.Float64Histogram
	vectorTopScore          metric.Float64Histogram
	vectorActiveConnections metric.Int64ObservableGauge
	vectorErrorsTotal       metric.Int64Counter
	vectorPools             sync.Map
)

func ensureVectorMetrics() error {
	vectorMetricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("docrag.vectordb")
		if err := initVectorHistograms(meter); err != nil {
			vectorMetricsErr = err
			return
		}
		vectorErrorsTotal, vectorMetricsErr = meter.Int64Counter(
			monitoringmetrics.MetricNameWithSubsystem("vectordb", "errors_total"),
			metric.WithDescription("Vector store operation errors"),
		)
		if vectorMetricsErr != nil {
			return
		}
		vectorMetricsErr = initVectorGauge(meter)
	})
	return vectorMetricsErr
}

func initVectorHistograms(meter metric.Meter) error {
	var err error
	vectorOpLatency, err = meter.Float64Histogram(
		monitoringmetrics.MetricNameWithSubsystem("vectordb", "operation_duration_seconds"),
		metric.WithDescription("Vector store operation latency"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(monitoringmetrics.StoreDurationBuckets...),
	)
	if err != nil {
		return err
	}
	vectorResultsCount, err = meter.Float64Histogram(
		monitoringmetrics.MetricNameWithSubsystem("vectordb", "results_per_search"),
		metric.WithDescription("Number of matches returned per search"),
		metric.WithExplicitBucketBoundaries(monitoringmetrics.ResultCountBuckets...),
	)
	if err != nil {
		return err
	}
	vectorTopScore, err = meter.Float64Histogram(
		monitoringmetrics.MetricNameWithSubsystem("vectordb", "top_score"),
		metric.WithDescription("Similarity score of the best match"),
		metric.WithExplicitBucketBoundaries(monitoringmetrics.SimilarityBuckets...),
	)
	return err
}

func initVectorGauge(meter metric.Meter) error {
	var err error
	vectorActiveConnections, err = meter.Int64ObservableGauge(
		monitoringmetrics.MetricNameWithSubsystem("vectordb", "connections_active"),
		metric.WithDescription("Acquired pgvector pool connections"),
	)
	if err != nil {
		return err
	}
	_, err = meter.RegisterCallback(func(_ context.Context, observer metric.Observer) error {
		vectorPools.Range(func(key, value any) bool {
			pool, ok := value.(*pgxpool.Pool)
			if !ok || pool == nil {
				return true
			}
			poolID, _ := key.(string)
			observer.ObserveInt64(
				vectorActiveConnections,
				int64(pool.Stat().AcquiredConns()),
				metric.WithAttributes(attribute.String("vector_db_id", sanitizeLabel(poolID))),
			)
			return true
		})
		return nil
	}, vectorActiveConnections)
	return err
}

// trackVectorPool registers a pgx pool so the gauge callback can observe it.
func trackVectorPool(poolID string, pool *pgxpool.Pool) {
	if pool == nil || ensureVectorMetrics() != nil {
		return
	}
	vectorPools.Store(sanitizeLabel(poolID), pool)
}

func untrackVectorPool(poolID string) {
	vectorPools.Delete(sanitizeLabel(poolID))
}

func sanitizeLabel(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return labelUnknownValue
	}
	return strings.ToLower(trimmed)
}

// Instrument wraps a store so every call records latency and errors under the
// given provider label.
func Instrument(store Store, provider Provider) Store {
	if store == nil {
		return nil
	}
	return &instrumentedStore{Store: store, provider: sanitizeLabel(string(provider))}
}

type instrumentedStore struct {
	Store
	provider string
}

func (s *instrumentedStore) record(ctx context.Context, op string, start time.Time, err error) {
	if ensureVectorMetrics() != nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", s.provider),
		attribute.String("operation", op),
	)
	vectorOpLatency.Record(ctx, time.Since(start).Seconds(), attrs)
	if err != nil {
		vectorErrorsTotal.Add(ctx, 1, attrs)
	}
}

func (s *instrumentedStore) Upsert(ctx context.Context, records []Record) error {
	start := time.Now()
	err := s.Store.Upsert(ctx, records)
	s.record(ctx, "upsert", start, err)
	return err
}

func (s *instrumentedStore) Search(ctx context.Context, query []float32, opts SearchOptions) ([]Match, error) {
	start := time.Now()
	matches, err := s.Store.Search(ctx, query, opts)
	s.record(ctx, "search", start, err)
	if err == nil && ensureVectorMetrics() == nil {
		attrs := metric.WithAttributes(attribute.String("provider", s.provider))
		vectorResultsCount.Record(ctx, float64(len(matches)), attrs)
		if len(matches) > 0 {
			vectorTopScore.Record(ctx, matches[0].Score, attrs)
		}
	}
	return matches, err
}

func (s *instrumentedStore) Delete(ctx context.Context, filter Filter) error {
	start := time.Now()
	err := s.Store.Delete(ctx, filter)
	s.record(ctx, "delete", start, err)
	return err
}
