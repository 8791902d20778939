package db

import (
	"time"

	"gorm.io/gorm"
)

// ProcessedIssue remembers what the reconciler derived from an issue, so
// stored images are not decoded and uploaded twice.
type ProcessedIssue struct {
	gorm.Model
	IssueNumber  int    `gorm:"uniqueIndex;not null"`
	EntryID      string `gorm:"index;not null"`
	Type         string
	State        string
	ImageURL     string
	ThumbnailURL string
	ProcessedAt  time.Time
}
