package cache

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/compozy/docrag/engine/infra/monitoring/metrics"
)

var (
	clientsMu       sync.Mutex
	clients         = make(map[*Redis]struct{})
	metricsOnce     sync.Once
	metricsInitErr  error
	metricsRegistry metric.Registration
)

func trackClient(r *Redis) {
	if err := ensureMetrics(); err != nil {
		return
	}
	clientsMu.Lock()
	clients[r] = struct{}{}
	clientsMu.Unlock()
}

func untrackClient(r *Redis) {
	clientsMu.Lock()
	delete(clients, r)
	clientsMu.Unlock()
}

func ensureMetrics() error {
	metricsOnce.Do(func() {
		meter := otel.GetMeterProvider().Meter("docrag.redis")
		total, err := meter.Int64ObservableGauge(
			metrics.MetricNameWithSubsystem("redis", "connections_total"),
			metric.WithDescription("Connections held by the Redis pool"),
		)
		if err != nil {
			metricsInitErr = err
			return
		}
		idle, err := meter.Int64ObservableGauge(
			metrics.MetricNameWithSubsystem("redis", "connections_idle"),
			metric.WithDescription("Idle connections in the Redis pool"),
		)
		if err != nil {
			metricsInitErr = err
			return
		}
		timeouts, err := meter.Int64ObservableCounter(
			metrics.MetricNameWithSubsystem("redis", "pool_timeouts_total"),
			metric.WithDescription("Times a caller waited too long for a pooled connection"),
		)
		if err != nil {
			metricsInitErr = err
			return
		}
		metricsRegistry, metricsInitErr = meter.RegisterCallback(
			func(_ context.Context, o metric.Observer) error {
				clientsMu.Lock()
				defer clientsMu.Unlock()
				for r := range clients {
					stats := r.PoolStats()
					attrs := metric.WithAttributes(attribute.String("addr", describeAddr(r.config)))
					o.ObserveInt64(total, int64(stats.TotalConns), attrs)
					o.ObserveInt64(idle, int64(stats.IdleConns), attrs)
					o.ObserveInt64(timeouts, int64(stats.Timeouts), attrs)
				}
				return nil
			},
			total, idle, timeouts,
		)
	})
	return metricsInitErr
}
