package router

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// RespondSuccess writes a flat JSON body with success=true merged into fields.
func RespondSuccess(c *gin.Context, status int, fields gin.H) {
	body := gin.H{"success": true}
	for k, v := range fields {
		if k == "success" {
			continue
		}
		body[k] = v
	}
	c.JSON(status, body)
}

// GetURLParam returns a trimmed path parameter, writing a 400 when it is blank.
func GetURLParam(c *gin.Context, name string) string {
	value := strings.TrimSpace(c.Param(name))
	if value == "" {
		RespondProblemWithCode(c, http.StatusBadRequest, ErrBadRequestCode, name+" is required")
		return ""
	}
	return value
}

// BindJSON decodes the body into dst, writing a 400 on malformed input. An empty
// body decodes to the zero value so handlers can report field-level errors.
func BindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		RespondProblemWithCode(c, http.StatusBadRequest, ErrBadRequestCode, ErrMsgInvalidBody)
		return false
	}
	return true
}
