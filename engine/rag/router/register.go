package ragrouter

import "github.com/gin-gonic/gin"

func Register(apiBase *gin.RouterGroup) {
	ragGroup := apiBase.Group("/rag")
	{
		// POST /api/v1/rag/ingest
		// Upload a document (multipart "file")
		ragGroup.POST("/ingest", ingestDocument)

		// POST /api/v1/rag/ask
		ragGroup.POST("/ask", askQuestion)

		// POST /api/v1/rag/ask/stream
		// Answer as server-sent events
		ragGroup.POST("/ask/stream", streamAnswer)

		// POST /api/v1/rag/search
		// Retrieve chunks without generating an answer
		ragGroup.POST("/search", searchDocuments)

		ragGroup.GET("/stats", documentStats)
	}

	docsGroup := ragGroup.Group("/documents")
	{
		// GET /api/v1/rag/documents?fileType=pdf&uploadedAfter=2024-01-01T00:00:00Z
		docsGroup.GET("", listDocuments)
		docsGroup.GET("/:document_id", getDocument)

		// DELETE /api/v1/rag/documents/:document_id
		// Soft delete: the document stops appearing in retrieval
		docsGroup.DELETE("/:document_id", deleteDocument)
	}
}
