package service

import (
	"errors"
	"strings"
	"time"

	"github.com/communitycontent/internal/db"
	"gorm.io/gorm"
)

// LedgerService records processed issues and moderation events. A nil
// database disables it; every method then becomes a no-op.
type LedgerService struct {
	db *gorm.DB
}

// NewLedgerService creates a LedgerService instance.
func NewLedgerService(gdb *gorm.DB) *LedgerService {
	return &LedgerService{db: gdb}
}

// Enabled reports whether a database is attached.
func (s *LedgerService) Enabled() bool {
	return s != nil && s.db != nil
}

// StoredImages returns image URLs already produced for an issue.
func (s *LedgerService) StoredImages(issueNumber int) (StoredImage, bool, error) {
	if !s.Enabled() {
		return StoredImage{}, false, nil
	}

	var rec db.ProcessedIssue
	if err := s.db.Where("issue_number = ?", issueNumber).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return StoredImage{}, false, nil
		}
		return StoredImage{}, false, err
	}
	if strings.TrimSpace(rec.ImageURL) == "" {
		return StoredImage{}, false, nil
	}
	return StoredImage{ImageURL: rec.ImageURL, ThumbnailURL: rec.ThumbnailURL}, true, nil
}

// RecordIssue inserts or updates the ledger row of an issue.
func (s *LedgerService) RecordIssue(rec db.ProcessedIssue) error {
	if !s.Enabled() {
		return nil
	}
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = time.Now().UTC()
	}

	var existing db.ProcessedIssue
	err := s.db.Where("issue_number = ?", rec.IssueNumber).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return s.db.Create(&rec).Error
	}
	if err != nil {
		return err
	}

	updates := map[string]interface{}{
		"entry_id":     rec.EntryID,
		"type":         rec.Type,
		"state":        rec.State,
		"processed_at": rec.ProcessedAt,
	}
	// keep stored images when the new record has none
	if rec.ImageURL != "" {
		updates["image_url"] = rec.ImageURL
		updates["thumbnail_url"] = rec.ThumbnailURL
	}
	return s.db.Model(&existing).Updates(updates).Error
}

// RecordModeration appends a moderation event.
func (s *LedgerService) RecordModeration(event db.ModerationEvent) error {
	if !s.Enabled() {
		return nil
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	return s.db.Create(&event).Error
}

// ModerationHistory lists the events of an entry, oldest first.
func (s *LedgerService) ModerationHistory(entryID string) ([]db.ModerationEvent, error) {
	if !s.Enabled() {
		return nil, nil
	}
	var events []db.ModerationEvent
	if err := s.db.Where("entry_id = ?", entryID).Order("occurred_at asc").Order("id asc").Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
