package server

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/compozy/docrag/engine/infra/server/router"
	"github.com/compozy/docrag/pkg/version"
)

const (
	statusHealthy   = "healthy"
	statusUnhealthy = "unhealthy"
)

// CreateHealthHandler runs every registered backend check under timeout and
// answers 503 when any of them fails.
func CreateHealthHandler(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := router.GetAppState(c)
		if state == nil {
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		checks := state.HealthChecks()
		names := make([]string, 0, len(checks))
		for name := range checks {
			names = append(names, name)
		}
		sort.Strings(names)
		ready := true
		components := gin.H{}
		for _, name := range names {
			component := gin.H{"status": statusHealthy}
			if err := checks[name](ctx); err != nil {
				ready = false
				component = gin.H{"status": statusUnhealthy, "error": err.Error()}
			}
			components[name] = component
		}
		status := statusHealthy
		if !ready {
			status = statusUnhealthy
		}
		c.JSON(determineHealthStatusCode(ready), gin.H{
			"success":    ready,
			"status":     status,
			"version":    version.GetVersion(),
			"components": components,
			"features": gin.H{
				"chat":      state.Chat != nil,
				"assistant": state.Assistant != nil,
				"streaming": state.Streaming != nil,
			},
		})
	}
}

func determineHealthStatusCode(ready bool) int {
	if !ready {
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}
