package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/communitycontent/internal/content"
	"github.com/communitycontent/internal/service"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type moderatePayload struct {
	EntryID string `json:"entryId"`
	Reason  string `json:"reason"`
}

// ModeratorRequired checks the bearer key against the configured bcrypt
// hash. Without a hash the moderation routes are disabled.
func (a *API) ModeratorRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if len(a.moderatorKeyHash) == 0 {
			respondError(c, http.StatusServiceUnavailable, "Modération désactivée")
			c.Abort()
			return
		}

		key, ok := strings.CutPrefix(c.GetHeader("Authorization"), "Bearer ")
		key = strings.TrimSpace(key)
		if !ok || key == "" || bcrypt.CompareHashAndPassword(a.moderatorKeyHash, []byte(key)) != nil {
			a.logger.Warnw("moderation request rejected", "client_ip", c.ClientIP())
			respondError(c, http.StatusUnauthorized, "Non autorisé")
			c.Abort()
			return
		}
		c.Next()
	}
}

// ModerateEntry soft deletes any entry of the published document.
func (a *API) ModerateEntry(c *gin.Context) {
	var payload moderatePayload
	if !bindJSON(c, &payload, "Données invalides: entryId requis") {
		return
	}

	result, err := a.moderation.RejectEntry(c.Request.Context(), service.RejectRequest{
		EntryID: payload.EntryID,
		Reason:  payload.Reason,
		Source:  service.SourceModerateEntry,
		Publish: true,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrRejectTargetMissing):
			respondError(c, http.StatusBadRequest, "Données invalides: entryId requis")
		case errors.Is(err, content.ErrEntryNotFound):
			respondError(c, http.StatusNotFound, "Entrée introuvable")
		case errors.Is(err, content.ErrConflict):
			_ = c.Error(err)
			respondError(c, http.StatusConflict, "Le contenu a changé, veuillez réessayer")
		case errors.Is(err, service.ErrPublishUnavailable):
			respondError(c, http.StatusServiceUnavailable, "Publication indisponible")
		default:
			respondUpstreamError(c, err, "Erreur lors de la modération")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Entrée rejetée",
		"entryId":      result.EntryID,
		"issueNumber":  result.IssueNumber,
		"issueClosed":  result.IssueClosed,
		"deleteMethod": result.Method,
	})
}
