package handler

import (
	"errors"
	"net/http"
	"slices"
	"strings"

	"github.com/communitycontent/internal/content"
	"github.com/communitycontent/internal/service"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const visitorSessionKey = "visitor_id"

type likePayload struct {
	EntryID     string     `json:"entryId"`
	IssueNumber flexString `json:"issueNumber"`
	SessionID   string     `json:"sessionId"`
	Action      string     `json:"action"`
}

func (p likePayload) entryID() string {
	if id := strings.TrimSpace(p.EntryID); id != "" {
		return id
	}
	if n, ok := p.IssueNumber.Int(); ok {
		return content.IssueEntryID(n)
	}
	return ""
}

// LikeIssue adds or removes the visitor's like on an entry of the
// published document.
func (a *API) LikeIssue(c *gin.Context) {
	if a.likes == nil {
		respondError(c, http.StatusServiceUnavailable, "Likes indisponibles")
		return
	}

	var payload likePayload
	if !bindJSON(c, &payload, "Données invalides: entryId et action requis") {
		return
	}
	entryID := payload.entryID()
	if entryID == "" {
		respondError(c, http.StatusBadRequest, "Données invalides: entryId et action requis")
		return
	}
	sessionID := strings.TrimSpace(payload.SessionID)
	if sessionID == "" {
		sessionID = visitorID(c)
	}

	result, err := a.likes.Like(c.Request.Context(), service.LikeRequest{
		EntryID:   entryID,
		SessionID: sessionID,
		Action:    payload.Action,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLikeActionInvalid):
			respondError(c, http.StatusBadRequest, "Données invalides: action doit être add ou remove")
		case errors.Is(err, service.ErrSessionRequired):
			respondError(c, http.StatusBadRequest, "Données invalides: sessionId requis")
		case errors.Is(err, content.ErrEntryNotFound):
			respondError(c, http.StatusNotFound, "Entrée introuvable")
		case errors.Is(err, content.ErrConflict):
			_ = c.Error(err)
			respondError(c, http.StatusConflict, "Le contenu a changé, veuillez réessayer")
		default:
			respondUpstreamError(c, err, "Erreur lors de la mise à jour des likes")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"entryId": result.Entry.ID,
		"likes":   result.Entry.Likes,
		"liked":   slices.Contains(result.Entry.LikedBy, sessionID),
		"changed": result.Changed,
	})
}

// visitorID returns the cookie session's visitor id, creating one on the
// first visit.
func visitorID(c *gin.Context) string {
	session := sessions.Default(c)
	if id, ok := session.Get(visitorSessionKey).(string); ok && id != "" {
		return id
	}
	id := uuid.NewString()
	session.Set(visitorSessionKey, id)
	if err := session.Save(); err != nil {
		_ = c.Error(err)
	}
	return id
}
