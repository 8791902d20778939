package service

import (
	"fmt"
	"strings"

	"github.com/communitycontent/internal/content"
)

const (
	labelContribution      = "contribution"
	labelModerationPending = "moderation-pending"
)

// Contribution is a submission ready to become an issue.
type Contribution struct {
	ID               string
	Type             string
	DisplayName      string
	Content          string
	Description      string
	ImageURL         string
	LocationID       string
	EventID          string
	Timestamp        string
	CreatedAt        string
	ModerationStatus string
	SessionID        string
}

// IssueTitle is "<type>: <display name>".
func (c Contribution) IssueTitle() string {
	return fmt.Sprintf("%s: %s", c.Type, c.DisplayName)
}

// IssueLabels are "contribution", the lower-cased type and, for entries
// awaiting review, "moderation-pending".
func (c Contribution) IssueLabels() []string {
	labels := []string{labelContribution}
	if t := content.NormalizeType(c.Type); t != "" {
		labels = append(labels, t)
	}
	if c.ModerationStatus == content.StatusPending {
		labels = append(labels, labelModerationPending)
	}
	return labels
}

// IssueBody renders the canonical Markdown body read back by IssueParser.
func (c Contribution) IssueBody() string {
	description := strings.TrimSpace(c.Description)
	if description == "" {
		description = descriptionPlaceholder
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**Type:** %s\n", c.Type)
	fmt.Fprintf(&b, "**Nom d'affichage:** %s\n", c.DisplayName)
	fmt.Fprintf(&b, "**Description:** %s\n", description)
	fmt.Fprintf(&b, "**Contenu:** %s", c.Content)
	if c.LocationID != "" {
		fmt.Fprintf(&b, "\n**Lieu:** %s", c.LocationID)
	}
	if c.EventID != "" {
		fmt.Fprintf(&b, "\n**Événement:** %s", c.EventID)
	}
	if c.ImageURL != "" && content.NormalizeType(c.Type) == content.TypePhoto {
		fmt.Fprintf(&b, "\n**Image:** ![Photo](%s)", c.ImageURL)
	}

	b.WriteString("\n\n---\n\n")
	fmt.Fprintf(&b, "**Créé le:** %s\n", c.CreatedAt)
	fmt.Fprintf(&b, "**Timestamp:** %s\n", c.Timestamp)
	fmt.Fprintf(&b, "**Modération:** %s\n", c.ModerationStatus)
	fmt.Fprintf(&b, "**ID:** %s\n", c.ID)
	fmt.Fprintf(&b, "**Session:** %s", c.SessionID)
	return b.String()
}

// PublishedEntry is the entry written by a direct publish of the issue.
func (c Contribution) PublishedEntry(issueNumber int, moderatedAt string) content.Entry {
	entry := content.Entry{
		ID:          content.IssueEntryID(issueNumber),
		Type:        c.Type,
		DisplayName: c.DisplayName,
		Content:     c.Content,
		Description: strings.TrimSpace(c.Description),
		LocationID:  c.LocationID,
		EventID:     c.EventID,
		SessionID:   c.SessionID,
		Timestamp:   c.Timestamp,
		CreatedAt:   c.CreatedAt,
		Likes:       0,
		LikedBy:     []string{},
		Moderation:  content.ModeratedAt(c.ModerationStatus, moderatedAt),
	}
	if isHTTPURL(c.ImageURL) {
		entry.ImageURL = c.ImageURL
		entry.ThumbnailURL = c.ImageURL
	}
	return entry
}

func isHTTPURL(value string) bool {
	return strings.HasPrefix(value, "https://") || strings.HasPrefix(value, "http://")
}
