package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/communitycontent/internal/github"
	"github.com/gin-gonic/gin"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"success": false, "error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		_ = c.Error(err)
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

// respondUpstreamError answers with the GitHub status when err came from
// the API, and with a generic 500 otherwise. The upstream message of a 4xx
// answer is passed on in details; 5xx bodies only go to the logs.
func respondUpstreamError(c *gin.Context, err error, message string) {
	_ = c.Error(err)

	var apiErr *github.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= http.StatusBadRequest {
		body := gin.H{"success": false, "error": fmt.Sprintf("%s: %d", message, apiErr.StatusCode)}
		if apiErr.StatusCode < http.StatusInternalServerError && apiErr.Message != "" {
			body["details"] = apiErr.Message
		}
		c.JSON(apiErr.StatusCode, body)
		return
	}
	respondError(c, http.StatusInternalServerError, message)
}

// NotFound answers unknown routes.
func NotFound(c *gin.Context) {
	respondError(c, http.StatusNotFound, "Route inconnue")
}

// MethodNotAllowed answers known routes called with the wrong method.
func MethodNotAllowed(c *gin.Context) {
	respondError(c, http.StatusMethodNotAllowed, "Méthode non autorisée")
}
