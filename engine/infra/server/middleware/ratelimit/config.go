package ratelimit

import (
	"strings"
	"time"

	"github.com/ulule/limiter/v3"

	"github.com/compozy/docrag/engine/infra/server/routes"
	appconfig "github.com/compozy/docrag/pkg/config"
)

const storePrefix = "docrag:ratelimit"

// Config holds the two budgets. Paths starting with a GeneratePrefixes entry
// spend the Generate budget; Excluded paths are never counted.
type Config struct {
	API              limiter.Rate
	Generate         limiter.Rate
	GeneratePrefixes []string
	Excluded         []string
}

// ConfigFrom derives the budgets and route prefixes from the application config.
func ConfigFrom(cfg *appconfig.Config) *Config {
	rl := cfg.RateLimit
	period := rl.Period
	if period <= 0 {
		period = time.Minute
	}
	base := routes.Base(cfg.Server.BasePath)
	excluded := make([]string, 0, len(rl.ExcludedPaths))
	for _, p := range rl.ExcludedPaths {
		if p = strings.TrimSpace(p); p != "" {
			excluded = append(excluded, p)
		}
	}
	return &Config{
		API:      limiter.Rate{Period: period, Limit: rl.Limit},
		Generate: limiter.Rate{Period: period, Limit: rl.GenerateLimit},
		GeneratePrefixes: []string{
			routes.RAG(base) + "/ask",
			routes.Chat(base),
			routes.Assistant(base),
			routes.Stream(base),
		},
		Excluded: excluded,
	}
}

func (c *Config) isExcluded(path string) bool {
	for _, p := range c.Excluded {
		if path == p || strings.HasPrefix(path, strings.TrimSuffix(p, "/")+"/") {
			return true
		}
	}
	return false
}

func (c *Config) isGenerate(path string) bool {
	for _, p := range c.GeneratePrefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
