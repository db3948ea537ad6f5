package server

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	assistantrouter "github.com/compozy/docrag/engine/assistant/router"
	chatrouter "github.com/compozy/docrag/engine/chat/router"
	"github.com/compozy/docrag/engine/infra/server/appstate"
	"github.com/compozy/docrag/engine/infra/server/routes"
	ragrouter "github.com/compozy/docrag/engine/rag/router"
	"github.com/compozy/docrag/pkg/logger"
)

// RegisterRoutes mounts every API group under the configured base path.
func RegisterRoutes(ctx context.Context, r *gin.Engine, state *appstate.State) error {
	if state == nil || state.Config == nil {
		return errors.New("app state with configuration is required")
	}
	base := routes.Base(state.Config.Server.BasePath)
	apiBase := r.Group(base)

	// GET /api/v1/health
	apiBase.GET(routes.Health(), CreateHealthHandler(healthCheckTimeout))

	ragrouter.Register(apiBase)
	chatrouter.Register(apiBase)
	assistantrouter.Register(apiBase)

	logger.FromContext(ctx).Info("Completed route registration", "base_path", base, "routes", len(r.Routes()))
	return nil
}
