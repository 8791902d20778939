package db

import (
	"time"

	"gorm.io/gorm"
)

// ModerationEvent is one soft delete applied to an entry.
type ModerationEvent struct {
	gorm.Model
	EntryID     string `gorm:"index;not null"`
	IssueNumber int
	Reason      string
	Source      string // delete-issue, moderate-entry, script, reconcile
	Method      string // direct, direct-fallback, workflow
	OccurredAt  time.Time
}
