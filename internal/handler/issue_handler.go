package handler

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/communitycontent/internal/service"
	"github.com/gin-gonic/gin"
)

type deleteIssuePayload struct {
	IssueNumber flexString `json:"issueNumber"`
	Reason      string     `json:"reason"`
}

const msgIssueNumberRequired = "Données invalides: numéro d'issue requis"

// DeleteIssue closes the issue behind an entry and, with direct deploy,
// marks the entry rejected in the published document.
func (a *API) DeleteIssue(c *gin.Context) {
	var payload deleteIssuePayload
	if !bindJSON(c, &payload, msgIssueNumberRequired) {
		return
	}
	number, ok := payload.IssueNumber.Int()
	if !ok {
		respondError(c, http.StatusBadRequest, msgIssueNumberRequired)
		return
	}

	result, err := a.moderation.RejectEntry(c.Request.Context(), service.RejectRequest{
		IssueNumber: number,
		Reason:      payload.Reason,
		Source:      service.SourceDeleteIssue,
		Publish:     a.directDelete,
	})
	if err != nil {
		if errors.Is(err, service.ErrRejectTargetMissing) {
			respondError(c, http.StatusBadRequest, msgIssueNumberRequired)
			return
		}
		respondUpstreamError(c, err, "Erreur lors de la fermeture de l'issue")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      fmt.Sprintf("Issue #%d fermée avec succès", result.IssueNumber),
		"issueNumber":  result.IssueNumber,
		"entryId":      result.EntryID,
		"deleteMethod": result.Method,
	})
}
