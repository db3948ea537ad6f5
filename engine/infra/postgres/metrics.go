package postgres

import (
	"context"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	monitoringmetrics "github.com/compozy/docrag/engine/infra/monitoring/metrics"
)

const defaultPoolLabel = "default"

var (
	postgresMetricsOnce     sync.Once
	postgresMetricsErr      error
	postgresConnectionsOpen metric.Int64ObservableGauge
	postgresConnectionsUsed metric.Int64ObservableGauge
	postgresConnectionsIdle metric.Int64ObservableGauge
	postgresAcquireWait     metric.Float64ObservableCounter
	postgresPools           sync.Map
)

// poolMetrics is the registration handle of one observed pool.
type poolMetrics struct {
	label string
	pool  *pgxpool.Pool
}

func trackPool(cfg *Config, pool *pgxpool.Pool) (*poolMetrics, error) {
	if err := ensurePostgresMetrics(); err != nil {
		return nil, err
	}
	pm := &poolMetrics{label: poolLabel(cfg), pool: pool}
	postgresPools.Store(pm, pm)
	return pm, nil
}

func (p *poolMetrics) unregister() {
	if p == nil {
		return
	}
	postgresPools.Delete(p)
}

func ensurePostgresMetrics() error {
	postgresMetricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("docrag.postgres")
		postgresMetricsErr = initPostgresInstruments(meter)
		if postgresMetricsErr != nil {
			return
		}
		_, postgresMetricsErr = meter.RegisterCallback(
			observePools,
			postgresConnectionsOpen,
			postgresConnectionsUsed,
			postgresConnectionsIdle,
			postgresAcquireWait,
		)
	})
	return postgresMetricsErr
}

func initPostgresInstruments(meter metric.Meter) error {
	var err error
	if postgresConnectionsOpen, err = meter.Int64ObservableGauge(
		monitoringmetrics.MetricNameWithSubsystem("postgres", "connections_open"),
		metric.WithDescription("Number of open Postgres connections"),
	); err != nil {
		return err
	}
	if postgresConnectionsUsed, err = meter.Int64ObservableGauge(
		monitoringmetrics.MetricNameWithSubsystem("postgres", "connections_in_use"),
		metric.WithDescription("Number of Postgres connections currently acquired"),
	); err != nil {
		return err
	}
	if postgresConnectionsIdle, err = meter.Int64ObservableGauge(
		monitoringmetrics.MetricNameWithSubsystem("postgres", "connections_idle"),
		metric.WithDescription("Number of idle Postgres connections"),
	); err != nil {
		return err
	}
	postgresAcquireWait, err = meter.Float64ObservableCounter(
		monitoringmetrics.MetricNameWithSubsystem("postgres", "acquire_wait_seconds_total"),
		metric.WithDescription("Cumulative time spent waiting for a pool connection"),
		metric.WithUnit("s"),
	)
	return err
}

func observePools(_ context.Context, observer metric.Observer) error {
	postgresPools.Range(func(_, value any) bool {
		pm, ok := value.(*poolMetrics)
		if !ok || pm.pool == nil {
			return true
		}
		stats := pm.pool.Stat()
		attrs := metric.WithAttributes(attribute.String("pool", pm.label))
		observer.ObserveInt64(postgresConnectionsOpen, int64(stats.TotalConns()), attrs)
		observer.ObserveInt64(postgresConnectionsUsed, int64(stats.AcquiredConns()), attrs)
		observer.ObserveInt64(postgresConnectionsIdle, int64(stats.IdleConns()), attrs)
		observer.ObserveFloat64(postgresAcquireWait, stats.EmptyAcquireWaitTime().Seconds(), attrs)
		return true
	})
	return nil
}

func poolLabel(cfg *Config) string {
	if cfg == nil {
		return defaultPoolLabel
	}
	parts := make([]string, 0, 2)
	for _, raw := range []string{cfg.Host, cfg.DBName} {
		if s := sanitizeLabelComponent(raw); s != "" {
			parts = append(parts, s)
		}
	}
	if len(parts) == 0 {
		return defaultPoolLabel
	}
	return strings.Join(parts, "-")
}

func sanitizeLabelComponent(component string) string {
	lower := strings.ToLower(strings.TrimSpace(component))
	var builder strings.Builder
	for _, r := range lower {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '.':
			builder.WriteRune(r)
		default:
			builder.WriteRune('_')
		}
	}
	return strings.Trim(builder.String(), "_")
}
