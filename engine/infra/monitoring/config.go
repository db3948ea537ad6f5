package monitoring

import (
	"fmt"
	"path"
	"strings"

	appconfig "github.com/compozy/docrag/pkg/config"
)

const defaultPath = "/metrics"

// Config controls the Prometheus scrape endpoint. APIBase is the prefix of the
// REST routes, which the scrape path must stay out of.
type Config struct {
	Enabled bool
	Path    string
	APIBase string
}

func DefaultConfig() *Config {
	return &Config{Path: defaultPath, APIBase: "/api/v1"}
}

// ConfigFrom reads the monitoring and server sections.
func ConfigFrom(cfg *appconfig.Config) *Config {
	out := DefaultConfig()
	out.Enabled = cfg.Monitoring.Enabled
	if p := strings.TrimSpace(cfg.Monitoring.Path); p != "" {
		out.Path = p
	}
	if base := strings.TrimSpace(cfg.Server.BasePath); base != "" {
		out.APIBase = base
	}
	return out
}

func (c *Config) Validate() error {
	switch {
	case c.Path == "":
		return fmt.Errorf("monitoring path cannot be empty")
	case !strings.HasPrefix(c.Path, "/"):
		return fmt.Errorf("monitoring path must start with '/': got %s", c.Path)
	case strings.ContainsAny(c.Path, "?#"):
		return fmt.Errorf("monitoring path cannot contain a query or fragment: %s", c.Path)
	case path.Clean(c.Path) != c.Path:
		return fmt.Errorf("monitoring path must be clean: got %s, want %s", c.Path, path.Clean(c.Path))
	}
	if base := path.Clean("/" + c.APIBase); base != "/" {
		if c.Path == base || strings.HasPrefix(c.Path, base+"/") {
			return fmt.Errorf("monitoring path %s cannot be under the API prefix %s", c.Path, base)
		}
	}
	return nil
}
