package postgres

import (
	"time"

	appconfig "github.com/compozy/docrag/pkg/config"
)

// Config holds PostgreSQL connection settings for the driver.
// ConnString wins over the individual fields when set.
type Config struct {
	ConnString  string
	Host        string
	Port        string
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int32
	MinConns    int32
	PingTimeout time.Duration
}

// ConfigFrom maps the application database section onto the driver config.
func ConfigFrom(cfg *appconfig.DatabaseConfig) *Config {
	return &Config{
		ConnString: cfg.DSN(),
		Host:       cfg.Host,
		Port:       cfg.Port,
		User:       cfg.User,
		Password:   cfg.Password.Value(),
		DBName:     cfg.DBName,
		SSLMode:    cfg.SSLMode,
		MaxConns:   cfg.MaxConns,
		MinConns:   cfg.MinConns,
	}
}

func dsn(cfg *Config) string {
	if cfg.ConnString != "" {
		return cfg.ConnString
	}
	db := appconfig.DatabaseConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: appconfig.SensitiveString(cfg.Password),
		DBName:   cfg.DBName,
		SSLMode:  cfg.SSLMode,
	}
	return db.DSN()
}
