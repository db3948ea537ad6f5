// Package sqlite is the embedded metadata driver, backed by modernc.org/sqlite,
// used when docrag runs without a Postgres server.
package sqlite

import (
	"time"

	appconfig "github.com/compozy/docrag/pkg/config"
)

// Config locates the database file; ":memory:" selects a shared in-memory
// database. BusyTimeout defaults to five seconds.
type Config struct {
	Path        string
	BusyTimeout time.Duration
}

func ConfigFrom(cfg *appconfig.SQLiteConfig) *Config {
	return &Config{Path: cfg.Path, BusyTimeout: cfg.BusyTimeout}
}
