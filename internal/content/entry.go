package content

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Entry types accepted by the site.
const (
	TypePhoto       = "photo"
	TypeTestimonial = "testimonial"
)

// Moderation states.
const (
	StatusApproved = "approved"
	StatusPending  = "pending"
	StatusRejected = "rejected"
)

// DefaultDisplayName is used when a submission carries no usable name.
const DefaultDisplayName = "Anonyme"

const issueIDPrefix = "issue-"

// Moderation describes the review state of an entry.
type Moderation struct {
	Status      string  `json:"status"`
	ModeratedAt *string `json:"moderatedAt"`
	Reason      string  `json:"reason,omitempty"`
}

// Entry is one community submission as published to the site.
type Entry struct {
	ID           string     `json:"id"`
	Type         string     `json:"type"`
	DisplayName  string     `json:"displayName"`
	Content      string     `json:"content,omitempty"`
	Description  string     `json:"description,omitempty"`
	ImageURL     string     `json:"imageUrl,omitempty"`
	ThumbnailURL string     `json:"thumbnailUrl,omitempty"`
	LocationID   string     `json:"locationId,omitempty"`
	EventID      string     `json:"eventId,omitempty"`
	SessionID    string     `json:"sessionId,omitempty"`
	Timestamp    string     `json:"timestamp"`
	CreatedAt    string     `json:"createdAt,omitempty"`
	Likes        int        `json:"likes"`
	LikedBy      []string   `json:"likedBy"`
	Moderation   Moderation `json:"moderation"`
}

// Clone returns a copy that shares no slices or pointers with e.
func (e Entry) Clone() Entry {
	out := e
	if e.LikedBy != nil {
		out.LikedBy = append(make([]string, 0, len(e.LikedBy)), e.LikedBy...)
	}
	if e.Moderation.ModeratedAt != nil {
		at := *e.Moderation.ModeratedAt
		out.Moderation.ModeratedAt = &at
	}
	return out
}

// IsIssueBacked reports whether the entry was derived from a GitHub issue.
func (e Entry) IsIssueBacked() bool {
	return strings.HasPrefix(e.ID, issueIDPrefix)
}

// IsRejected reports whether the entry has been soft deleted.
func (e Entry) IsRejected() bool {
	return e.Moderation.Status == StatusRejected
}

// SortTime is the instant used for ordering and retention. Unparseable
// timestamps sort as the zero time.
func (e Entry) SortTime() time.Time {
	if t, ok := ParseTime(e.Timestamp); ok {
		return t
	}
	if t, ok := ParseTime(e.CreatedAt); ok {
		return t
	}
	return time.Time{}
}

// IssueEntryID returns the id of the entry derived from issue n.
func IssueEntryID(number int) string {
	return issueIDPrefix + strconv.Itoa(number)
}

// IssueNumber extracts N from an "issue-N" id.
func IssueNumber(id string) (int, bool) {
	raw, ok := strings.CutPrefix(id, issueIDPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// NormalizeType lower-cases and trims a submitted type.
func NormalizeType(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// IsKnownType reports whether t is photo or testimonial.
func IsKnownType(t string) bool {
	return t == TypePhoto || t == TypeTestimonial
}

// NormalizeStatus maps free-form moderation input to a known state.
// Unknown values fall back to approved.
func NormalizeStatus(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case StatusPending:
		return StatusPending
	case StatusRejected:
		return StatusRejected
	default:
		return StatusApproved
	}
}

const isoLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTime renders t the way browsers render Date.toISOString.
func FormatTime(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

// ParseTime accepts RFC 3339 timestamps with or without fractional seconds.
func ParseTime(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// TimestampFromMillis converts a JavaScript epoch-milliseconds value.
func TimestampFromMillis(ms int64) string {
	return FormatTime(time.UnixMilli(ms))
}

func stringPtr(v string) *string {
	return &v
}

// ModeratedNow returns a moderation block stamped with now.
func ModeratedNow(status string, now time.Time) Moderation {
	return Moderation{Status: status, ModeratedAt: stringPtr(FormatTime(now))}
}

// ModeratedAt returns a moderation block stamped with an existing timestamp.
func ModeratedAt(status, at string) Moderation {
	if strings.TrimSpace(at) == "" {
		return Moderation{Status: status}
	}
	return Moderation{Status: status, ModeratedAt: stringPtr(at)}
}

func (e Entry) String() string {
	return fmt.Sprintf("%s(%s, %s)", e.ID, e.Type, e.DisplayName)
}
