// Package ratelimit throttles API requests per client IP with ulule/limiter,
// counting in process memory or in Redis when several replicas share a budget.
package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/compozy/docrag/engine/infra/monitoring/metrics"
	"github.com/compozy/docrag/engine/infra/server/router"
	"github.com/compozy/docrag/pkg/logger"
)

const (
	bucketAPI      = "api"
	bucketGenerate = "generate"
)

// NewMemoryStore counts requests inside this process.
func NewMemoryStore() limiter.Store {
	return memory.NewStoreWithOptions(limiter.StoreOptions{
		Prefix:          storePrefix,
		CleanUpInterval: time.Minute,
	})
}

// NewRedisStore shares counters through Redis.
func NewRedisStore(client redis.UniversalClient) (limiter.Store, error) {
	store, err := sredis.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: storePrefix, MaxRetry: 3})
	if err != nil {
		return nil, fmt.Errorf("rate limit redis store: %w", err)
	}
	return store, nil
}

// Limiter applies the API and generate budgets.
type Limiter struct {
	cfg      *Config
	api      *limiter.Limiter
	generate *limiter.Limiter
}

func New(cfg *Config, store limiter.Store) *Limiter {
	return &Limiter{
		cfg:      cfg,
		api:      limiter.New(store, cfg.API),
		generate: limiter.New(store, cfg.Generate),
	}
}

// Middleware sets the X-RateLimit-* headers and answers 429 with Retry-After
// once the client's budget is spent. A failing store lets requests through.
func (l *Limiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if l.cfg.isExcluded(path) {
			c.Next()
			return
		}
		lim, bucket := l.api, bucketAPI
		if l.cfg.isGenerate(path) {
			lim, bucket = l.generate, bucketGenerate
		}
		ctx := c.Request.Context()
		res, err := lim.Get(ctx, bucket+":"+c.ClientIP())
		if err != nil {
			logger.FromContext(ctx).Warn("Rate limiter unavailable", "error", err, "bucket", bucket)
			c.Next()
			return
		}
		h := c.Writer.Header()
		h.Set("X-RateLimit-Limit", strconv.FormatInt(res.Limit, 10))
		h.Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset, 10))
		if !res.Reached {
			c.Next()
			return
		}
		h.Set("Retry-After", strconv.FormatInt(max(res.Reset-time.Now().Unix(), 1), 10))
		recordRejected(ctx, bucket)
		router.RespondProblemWithExtras(c, http.StatusTooManyRequests, router.ErrRateLimitedCode,
			"rate limit exceeded, retry later", map[string]any{"limit": res.Limit, "bucket": bucket})
	}
}

var (
	rejectedOnce    sync.Once
	rejectedCounter metric.Int64Counter
)

func recordRejected(ctx context.Context, bucket string) {
	rejectedOnce.Do(func() {
		counter, err := otel.GetMeterProvider().Meter("docrag.ratelimit").Int64Counter(
			metrics.MetricNameWithSubsystem("http", "rate_limited_total"),
			metric.WithDescription("Requests rejected by the rate limiter"),
		)
		if err == nil {
			rejectedCounter = counter
		}
	})
	if rejectedCounter != nil {
		rejectedCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("bucket", bucket)))
	}
}
