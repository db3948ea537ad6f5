package server

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/compozy/docrag/engine/infra/server/appstate"
	"github.com/compozy/docrag/engine/infra/server/middleware/ratelimit"
	"github.com/compozy/docrag/engine/infra/server/middleware/size"
	"github.com/compozy/docrag/engine/infra/server/routes"
	"github.com/compozy/docrag/pkg/logger"
	"github.com/compozy/docrag/pkg/version"
)

func (s *Server) buildRouter(state *appstate.State) error {
	r := gin.New()
	r.Use(gin.Recovery())
	if s.monitoring != nil && s.monitoring.IsInitialized() {
		r.Use(s.monitoring.GinMiddleware(s.ctx))
	}
	r.Use(LoggerMiddleware(logger.FromContext(s.ctx)))
	if s.config.Server.CORSEnabled {
		r.Use(CORSMiddleware(s.config.Server.AllowedOrigins))
	}
	if s.config.RateLimit.Enabled {
		mw, err := s.rateLimiter()
		if err != nil {
			return err
		}
		r.Use(mw)
	}
	r.Use(size.BodySizeLimiter(uploadLimit(s.config.Server.MaxUploadBytes)))
	r.Use(appstate.StateMiddleware(state))
	if s.monitoring != nil && s.monitoring.IsInitialized() {
		r.GET(s.monitoring.Path(), gin.WrapH(s.monitoring.ExporterHandler()))
	}
	if err := RegisterRoutes(s.ctx, r, state); err != nil {
		return err
	}
	s.router = r
	return nil
}

func (s *Server) rateLimiter() (gin.HandlerFunc, error) {
	store := ratelimit.NewMemoryStore()
	if s.config.RateLimit.Driver == "redis" {
		if s.redis == nil {
			return nil, fmt.Errorf("rate limiting with redis requires a redis connection")
		}
		var err error
		if store, err = ratelimit.NewRedisStore(s.redis.UniversalClient); err != nil {
			return nil, err
		}
	}
	cfg := ratelimit.ConfigFrom(s.config)
	logger.FromContext(s.ctx).Info("Rate limiting enabled",
		"driver", s.config.RateLimit.Driver,
		"limit", cfg.API.Limit,
		"generate_limit", cfg.Generate.Limit,
		"period", cfg.API.Period,
	)
	return ratelimit.New(cfg, store).Middleware(), nil
}

// uploadLimit leaves room for the multipart envelope around the file part.
func uploadLimit(maxUpload int64) int64 {
	const multipartOverhead = 64 << 10
	return maxUpload + multipartOverhead
}

func (s *Server) logStartupBanner() {
	cfg := s.config.Server
	httpURL := fmt.Sprintf("http://%s:%d", friendlyHost(cfg.Host), cfg.Port)
	base := routes.Base(cfg.BasePath)
	apiURL := httpURL + base
	lines := []string{
		fmt.Sprintf("docrag %s", version.GetVersion()),
		fmt.Sprintf("  API        > %s", apiURL),
		fmt.Sprintf("  Health     > %s%s", apiURL, routes.Health()),
		fmt.Sprintf("  Documents  > %s", httpURL+routes.Documents(base)),
	}
	if s.monitoring != nil && s.monitoring.IsInitialized() {
		lines = append(lines, fmt.Sprintf("  Metrics    > %s%s", httpURL, s.monitoring.Path()))
	}
	logger.FromContext(s.ctx).Info(strings.Join(lines, "\n"))
}

func friendlyHost(host string) string {
	switch host {
	case "", hostAny, "::":
		return "localhost"
	case hostLoopback:
		return "localhost"
	default:
		return host
	}
}
