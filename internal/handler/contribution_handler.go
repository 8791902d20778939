package handler

import (
	"errors"
	"net/http"

	"github.com/communitycontent/internal/service"
	"github.com/gin-gonic/gin"
)

type entryPayload struct {
	ID          string         `json:"id"`
	Type        string         `json:"type"`
	DisplayName string         `json:"displayName"`
	Content     string         `json:"content"`
	Description string         `json:"description"`
	ImageURL    string         `json:"imageUrl"`
	LocationID  string         `json:"locationId"`
	EventID     string         `json:"eventId"`
	Timestamp   flexString     `json:"timestamp"`
	CreatedAt   flexString     `json:"createdAt"`
	Moderation  flexModeration `json:"moderation"`
}

type createContributionPayload struct {
	Entry     *entryPayload `json:"entry"`
	SessionID string        `json:"sessionId"`
}

func (p createContributionPayload) toContribution() service.Contribution {
	e := p.Entry
	return service.Contribution{
		ID:               e.ID,
		Type:             e.Type,
		DisplayName:      e.DisplayName,
		Content:          e.Content,
		Description:      e.Description,
		ImageURL:         e.ImageURL,
		LocationID:       e.LocationID,
		EventID:          e.EventID,
		Timestamp:        e.Timestamp.String(),
		CreatedAt:        e.CreatedAt.String(),
		ModerationStatus: string(e.Moderation),
		SessionID:        p.SessionID,
	}
}

type createIssuePayload struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Labels []string `json:"labels"`
}

const (
	msgContributionInvalid = "Données invalides: entry et sessionId requis"
	msgDisplayNameRequired = "Données invalides: displayName requis et ne peut pas être vide"
	msgIssueFieldsRequired = "Données invalides: titre et corps requis"
)

// CreateContribution turns a submitted entry into a GitHub issue.
func (a *API) CreateContribution(c *gin.Context) {
	var payload createContributionPayload
	if !bindJSON(c, &payload, msgContributionInvalid) {
		return
	}
	if payload.Entry == nil {
		respondError(c, http.StatusBadRequest, msgContributionInvalid)
		return
	}

	result, err := a.contributions.Create(c.Request.Context(), payload.toContribution())
	if err != nil {
		switch {
		case errors.Is(err, service.ErrContributionIncomplete):
			respondError(c, http.StatusBadRequest, msgContributionInvalid)
		case errors.Is(err, service.ErrDisplayNameRequired):
			respondError(c, http.StatusBadRequest, msgDisplayNameRequired)
		default:
			respondUpstreamError(c, err, "Erreur lors de la création de la contribution")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Contribution créée avec succès",
		"issueNumber":  result.IssueNumber,
		"entryId":      result.EntryID,
		"deployMethod": result.DeployMethod,
		"duplicate":    result.Duplicate,
	})
}

// CreateIssue forwards a free-form issue.
func (a *API) CreateIssue(c *gin.Context) {
	var payload createIssuePayload
	if !bindJSON(c, &payload, msgIssueFieldsRequired) {
		return
	}

	labels := payload.Labels
	if labels == nil {
		labels = []string{}
	}
	issue, err := a.contributions.CreateRawIssue(c.Request.Context(), payload.Title, payload.Body, labels)
	if err != nil {
		if errors.Is(err, service.ErrIssueFieldsRequired) {
			respondError(c, http.StatusBadRequest, msgIssueFieldsRequired)
			return
		}
		respondUpstreamError(c, err, "Erreur lors de la création de l'issue")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":     true,
		"issueNumber": issue.Number,
		"title":       issue.Title,
		"url":         issue.HTMLURL,
	})
}
