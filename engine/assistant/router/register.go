package assistantrouter

import "github.com/gin-gonic/gin"

func Register(apiBase *gin.RouterGroup) {
	assistantGroup := apiBase.Group("/assistant")
	{
		// GET /api/v1/assistant/templates
		assistantGroup.GET("/templates", listTemplates)

		// POST /api/v1/assistant/:template
		// Run a prompt template and return the full result
		assistantGroup.POST("/:template", runTemplate)
	}

	// POST /api/v1/stream/:template
	// Same as /assistant/:template, delivered as server-sent events
	apiBase.POST("/stream/:template", streamTemplate)
}
