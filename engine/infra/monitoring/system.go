package monitoring

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/compozy/docrag/engine/infra/monitoring/metrics"
	"github.com/compozy/docrag/pkg/logger"
	"github.com/compozy/docrag/pkg/version"
)

var (
	systemMu     sync.Mutex
	systemOnce   sync.Once
	buildGauge   metric.Float64Gauge
	uptimeReg    metric.Registration
	processStart time.Time
)

func initSystemMetrics(ctx context.Context, meter metric.Meter) {
	systemOnce.Do(func() {
		log := logger.FromContext(ctx)
		var err error
		buildGauge, err = meter.Float64Gauge(
			metrics.MetricName("build_info"),
			metric.WithDescription("Build information (value=1)"),
		)
		if err != nil {
			log.Error("Failed to create build info gauge", "error", err)
		}
		uptime, err := meter.Float64ObservableGauge(
			metrics.MetricName("uptime_seconds"),
			metric.WithDescription("Service uptime in seconds"),
		)
		if err != nil {
			log.Error("Failed to create uptime gauge", "error", err)
			return
		}
		processStart = time.Now()
		uptimeReg, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
			o.ObserveFloat64(uptime, time.Since(processStart).Seconds())
			return nil
		}, uptime)
		if err != nil {
			log.Error("Failed to register uptime callback", "error", err)
		}
	})
}

// InitSystemMetrics registers build info and uptime on meter. Later calls are no-ops.
func InitSystemMetrics(ctx context.Context, meter metric.Meter) {
	systemMu.Lock()
	defer systemMu.Unlock()
	initSystemMetrics(ctx, meter)
	if buildGauge == nil {
		return
	}
	info := version.Get()
	buildGauge.Record(ctx, 1, metric.WithAttributes(
		attribute.String("version", info.Version),
		attribute.String("commit_hash", info.CommitHash),
		attribute.String("go_version", info.GoVersion),
	))
}

// ResetSystemMetricsForTesting clears the once-guard so tests can register again.
func ResetSystemMetricsForTesting() {
	systemMu.Lock()
	defer systemMu.Unlock()
	if uptimeReg != nil {
		_ = uptimeReg.Unregister()
		uptimeReg = nil
	}
	buildGauge = nil
	processStart = time.Time{}
	systemOnce = sync.Once{}
}
