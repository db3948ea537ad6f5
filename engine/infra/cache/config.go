package cache

import (
	"time"

	appconfig "github.com/compozy/docrag/pkg/config"
)

// Config holds Redis connection settings.
type Config struct {
	URL         string
	Host        string
	Port        string
	Password    string
	DB          int
	PoolSize    int
	DialTimeout time.Duration
	PingTimeout time.Duration
}

// ConfigFrom maps the application redis section onto the client config.
func ConfigFrom(cfg *appconfig.RedisConfig) *Config {
	return &Config{
		URL:         cfg.URL,
		Host:        cfg.Host,
		Port:        cfg.Port,
		Password:    cfg.Password.Value(),
		DB:          cfg.DB,
		PoolSize:    cfg.PoolSize,
		DialTimeout: cfg.DialTimeout,
		PingTimeout: cfg.PingTimeout,
	}
}
