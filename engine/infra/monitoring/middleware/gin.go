package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/compozy/docrag/engine/infra/monitoring/metrics"
	"github.com/compozy/docrag/pkg/logger"
)

type httpInstruments struct {
	total    metric.Int64Counter
	duration metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

var (
	instruments *httpInstruments
	initOnce    sync.Once
	initMutex   sync.Mutex
)

func initMetrics(ctx context.Context, meter metric.Meter) *httpInstruments {
	initMutex.Lock()
	defer initMutex.Unlock()
	initOnce.Do(func() {
		log := logger.FromContext(ctx)
		total, err := meter.Int64Counter(
			metrics.MetricNameWithSubsystem("http", "requests_total"),
			metric.WithDescription("Total HTTP requests"),
		)
		if err != nil {
			log.Error("Failed to create http requests counter", "error", err)
			return
		}
		duration, err := meter.Float64Histogram(
			metrics.MetricNameWithSubsystem("http", "request_duration_seconds"),
			metric.WithDescription("HTTP request latency"),
			metric.WithExplicitBucketBoundaries(metrics.HTTPDurationBuckets...),
		)
		if err != nil {
			log.Error("Failed to create http duration histogram", "error", err)
			return
		}
		inFlight, err := meter.Int64UpDownCounter(
			metrics.MetricNameWithSubsystem("http", "requests_in_flight"),
			metric.WithDescription("Currently active HTTP requests"),
		)
		if err != nil {
			log.Error("Failed to create http in-flight counter", "error", err)
			return
		}
		instruments = &httpInstruments{total: total, duration: duration, inFlight: inFlight}
	})
	return instruments
}

// ResetMetricsForTesting lets a test bind the middleware to a fresh meter.
func ResetMetricsForTesting() {
	initMutex.Lock()
	defer initMutex.Unlock()
	instruments = nil
	initOnce = sync.Once{}
}

// HTTPMetrics counts requests by method, route template and status.
func HTTPMetrics(ctx context.Context, meter metric.Meter) gin.HandlerFunc {
	inst := initMetrics(ctx, meter)
	return func(c *gin.Context) {
		if inst == nil {
			c.Next()
			return
		}
		reqCtx := c.Request.Context()
		start := time.Now()
		inst.inFlight.Add(reqCtx, 1)
		defer inst.inFlight.Add(reqCtx, -1)
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("path", route),
			attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
		)
		inst.total.Add(reqCtx, 1, attrs)
		inst.duration.Record(reqCtx, time.Since(start).Seconds(), attrs)
	}
}
