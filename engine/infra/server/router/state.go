package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/compozy/docrag/engine/infra/server/appstate"
)

// GetAppState returns the request's application state, writing a 500 when the
// state middleware did not run.
func GetAppState(c *gin.Context) *appstate.State {
	state, err := appstate.GetState(c.Request.Context())
	if err != nil {
		RespondProblemWithCode(c, http.StatusInternalServerError, ErrInternalCode, ErrMsgAppStateNotInitialized)
		return nil
	}
	return state
}
