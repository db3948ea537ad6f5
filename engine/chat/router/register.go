package chatrouter

import "github.com/gin-gonic/gin"

func Register(apiBase *gin.RouterGroup) {
	chatGroup := apiBase.Group("/chat")
	{
		// GET /api/v1/chat/personas
		chatGroup.GET("/personas", listPersonas)

		// POST /api/v1/chat/:session_id
		// Send a message within a session
		chatGroup.POST("/:session_id", sendMessage)

		// POST /api/v1/chat/:session_id/stream
		chatGroup.POST("/:session_id/stream", streamMessage)

		chatGroup.GET("/:session_id/history", getHistory)

		// DELETE /api/v1/chat/:session_id
		// Forget the session history
		chatGroup.DELETE("/:session_id", resetSession)
	}
}
