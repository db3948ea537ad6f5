package size

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/compozy/docrag/engine/infra/server/router"
)

// BodySizeLimiter caps request bodies at limit bytes. Requests that declare a
// larger Content-Length are rejected before the handler runs.
func BodySizeLimiter(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 || c.Request.Body == nil {
			c.Next()
			return
		}
		if c.Request.ContentLength > limit {
			router.RespondProblemWithExtras(c, http.StatusRequestEntityTooLarge, router.ErrPayloadTooLargeCode,
				fmt.Sprintf("request body exceeds %d bytes", limit),
				map[string]any{"limitBytes": limit})
			c.Abort()
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
