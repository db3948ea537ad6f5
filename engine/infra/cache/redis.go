package cache

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/compozy/docrag/pkg/logger"
)

// RedisInterface is the command surface used by the Redis-backed stores.
// *redis.Client and *Redis both satisfy it.
type RedisInterface interface {
	redis.Scripter
	Ping(ctx context.Context) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Exists(ctx context.Context, keys ...string) *redis.IntCmd
	PTTL(ctx context.Context, key string) *redis.DurationCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	LLen(ctx context.Context, key string) *redis.IntCmd
}

// Redis wraps a go-redis client with lifecycle logging and health checks.
type Redis struct {
	redis.UniversalClient
	config *Config
	once   sync.Once
	ctx    context.Context
}

var _ RedisInterface = (*Redis)(nil)

const fallbackPingTimeout = 10 * time.Second

// NewRedis connects to Redis and verifies the connection with a ping.
func NewRedis(ctx context.Context, cfg *Config) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config is required")
	}
	log := logger.FromContext(ctx).With("component", "infra_redis")
	ctx = logger.ContextWithLogger(ctx, log)
	client, err := buildClient(cfg)
	if err != nil {
		return nil, err
	}
	timeout := cfg.PingTimeout
	if timeout <= 0 {
		timeout = fallbackPingTimeout
	}
	if err := ping(ctx, client, timeout); err != nil {
		client.Close()
		return nil, err
	}
	r := &Redis{UniversalClient: client, config: cfg, ctx: ctx}
	trackClient(r)
	log.Info("Redis connection established", "addr", describeAddr(cfg), "db", cfg.DB, "pool_size", cfg.PoolSize)
	return r, nil
}

func buildClient(cfg *Config) (*redis.Client, error) {
	var opt *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parsing Redis URL: %w", err)
		}
		opt = parsed
	} else {
		if cfg.Host == "" {
			return nil, fmt.Errorf("redis host or url is required")
		}
		port := cfg.Port
		if port == "" {
			port = "6379"
		}
		opt = &redis.Options{
			Addr:     net.JoinHostPort(cfg.Host, port),
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}
	if cfg.PoolSize > 0 {
		opt.PoolSize = cfg.PoolSize
	}
	if cfg.DialTimeout > 0 {
		opt.DialTimeout = cfg.DialTimeout
	}
	return redis.NewClient(opt), nil
}

func ping(ctx context.Context, client redis.UniversalClient, timeout time.Duration) error {
	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("pinging Redis server (timeout=%s): %w", timeout, err)
	}
	return nil
}

func describeAddr(cfg *Config) string {
	if cfg.URL != "" {
		if opt, err := redis.ParseURL(cfg.URL); err == nil {
			return opt.Addr
		}
	}
	return net.JoinHostPort(cfg.Host, cfg.Port)
}

// Close shuts the connection pool down once.
func (r *Redis) Close() error {
	var err error
	r.once.Do(func() {
		untrackClient(r)
		err = r.UniversalClient.Close()
		if err != nil {
			logger.FromContext(r.ctx).Error("Redis connection close failed", "error", err)
			return
		}
		logger.FromContext(r.ctx).Debug("Redis connection closed")
	})
	return err
}

// HealthCheck pings the server and round-trips a short-lived key.
func (r *Redis) HealthCheck(ctx context.Context) error {
	if err := r.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping failed: %w", err)
	}
	const key = "docrag:health_check"
	if err := r.Set(ctx, key, "ok", 10*time.Second).Err(); err != nil {
		return fmt.Errorf("set operation failed: %w", err)
	}
	value, err := r.Get(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("get operation failed: %w", err)
	}
	if value != "ok" {
		return fmt.Errorf("get result mismatch: expected ok, got %s", value)
	}
	if err := r.Del(ctx, key).Err(); err != nil {
		logger.FromContext(ctx).Debug("failed to clean up health check key", "key", key, "error", err)
	}
	return nil
}
