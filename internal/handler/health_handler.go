package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health reports liveness and the publish mode.
func (a *API) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"status":       "ok",
		"directDeploy": a.contributions != nil && a.contributions.DirectDeploy(),
	})
}
