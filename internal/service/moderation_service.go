package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/communitycontent/internal/content"
	"github.com/communitycontent/internal/db"
	"github.com/communitycontent/internal/github"
	"github.com/communitycontent/internal/logging"
	"github.com/communitycontent/internal/metrics"
	"go.uber.org/zap"
)

var (
	ErrRejectTargetMissing = errors.New("entry id or issue number is required")
	ErrPublishUnavailable  = errors.New("no document store to publish the rejection")
)

// Delete methods reported to callers.
const (
	MethodDirect         = "direct"
	MethodDirectFallback = "direct-fallback"
	MethodWorkflow       = "workflow"
)

// Rejection sources recorded in the ledger.
const (
	SourceDeleteIssue   = "delete-issue"
	SourceModerateEntry = "moderate-entry"
	SourceScript        = "script"
)

// ApplyRejection soft deletes entry id: its moderation becomes rejected,
// stamped with now, and every other field is kept. Rejecting a rejected
// entry changes nothing. The input is not modified.
func ApplyRejection(entries []content.Entry, id, reason string, now time.Time) ([]content.Entry, bool, error) {
	idx := content.FindEntry(entries, id)
	if idx < 0 {
		return nil, false, content.ErrEntryNotFound
	}

	out := content.CloneEntries(entries)
	if out[idx].IsRejected() {
		return out, false, nil
	}
	out[idx].Moderation = content.ModeratedNow(content.StatusRejected, now)
	out[idx].Moderation.Reason = strings.TrimSpace(reason)
	return out, true, nil
}

// IssueCloser reads and closes issues.
type IssueCloser interface {
	GetIssue(ctx context.Context, number int) (*github.Issue, error)
	CloseIssue(ctx context.Context, number int) (*github.Issue, error)
}

// RejectRequest names the entry to soft delete. Either field is enough;
// "issue-N" ids and issue numbers are converted into each other.
type RejectRequest struct {
	EntryID     string
	IssueNumber int
	Reason      string
	Source      string
	Publish     bool
}

// RejectResult describes what RejectEntry did.
type RejectResult struct {
	EntryID     string
	IssueNumber int
	IssueClosed bool
	Method      string
}

// ModerationService is the single soft delete path used by the HTTP
// handlers and the batch scripts.
type ModerationService struct {
	issues IssueCloser
	store  content.Store
	ledger *LedgerService
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewModerationService creates a ModerationService. issues and store may
// be nil when the caller only has one of them.
func NewModerationService(issues IssueCloser, store content.Store, ledger *LedgerService, logger *zap.SugaredLogger) *ModerationService {
	return &ModerationService{
		issues: issues,
		store:  store,
		ledger: ledger,
		logger: logging.OrNop(logger),
		now:    time.Now,
	}
}

// RejectEntry closes the source issue of an issue-backed entry and, when
// Publish is set, marks the entry rejected in the document. A failed
// publish of an issue-backed entry falls back to the next reconciliation,
// which sees the closed issue. Other entries have no such fallback, so
// their publish errors are returned.
func (s *ModerationService) RejectEntry(ctx context.Context, req RejectRequest) (RejectResult, error) {
	result, err := resolveRejectTarget(req)
	if err != nil {
		return RejectResult{}, err
	}
	source := strings.TrimSpace(req.Source)
	if source == "" {
		source = SourceScript
	}

	if result.IssueNumber > 0 && s.issues != nil {
		closed, err := s.closeIssue(ctx, result.IssueNumber)
		if err != nil {
			return RejectResult{}, err
		}
		result.IssueClosed = closed
	}

	issueBacked := result.IssueNumber > 0
	result.Method = MethodWorkflow
	switch {
	case req.Publish && s.store != nil:
		err := content.Update(ctx, s.store, fmt.Sprintf("Reject %s", result.EntryID), s.now, func(doc *content.Document) error {
			entries, _, err := ApplyRejection(doc.Entries, result.EntryID, req.Reason, s.now())
			if err != nil {
				return err
			}
			doc.Entries = entries
			return nil
		})
		switch {
		case err == nil:
			result.Method = MethodDirect
		case issueBacked:
			s.logger.Warnw("direct rejection failed, leaving it to reconciliation", "entry", result.EntryID, "error", err)
			result.Method = MethodDirectFallback
		default:
			if errors.Is(err, content.ErrEntryNotFound) {
				s.logger.Warnw("rejection target not found", "entry", result.EntryID)
			}
			return RejectResult{}, err
		}
	case !issueBacked:
		return RejectResult{}, ErrPublishUnavailable
	}

	if err := s.ledger.RecordModeration(db.ModerationEvent{
		EntryID:     result.EntryID,
		IssueNumber: result.IssueNumber,
		Reason:      strings.TrimSpace(req.Reason),
		Source:      source,
		Method:      result.Method,
		OccurredAt:  s.now().UTC(),
	}); err != nil {
		s.logger.Warnw("ledger write failed", "entry", result.EntryID, "error", err)
	}

	metrics.DeletionsTotal.WithLabelValues(result.Method, source).Inc()
	s.logger.Infow("entry rejected", "entry", result.EntryID, "issue", result.IssueNumber, "method", result.Method, "source", source)
	return result, nil
}

// closeIssue checks the issue exists and closes it if it is open.
func (s *ModerationService) closeIssue(ctx context.Context, number int) (bool, error) {
	issue, err := s.issues.GetIssue(ctx, number)
	if err != nil {
		return false, fmt.Errorf("check issue #%d: %w", number, err)
	}
	if !issue.IsOpen() {
		return false, nil
	}
	if _, err := s.issues.CloseIssue(ctx, number); err != nil {
		return false, fmt.Errorf("close issue #%d: %w", number, err)
	}
	return true, nil
}

func resolveRejectTarget(req RejectRequest) (RejectResult, error) {
	id := strings.TrimSpace(req.EntryID)
	number := req.IssueNumber

	switch {
	case id == "" && number > 0:
		id = content.IssueEntryID(number)
	case id != "" && number <= 0:
		if n, ok := content.IssueNumber(id); ok {
			number = n
		}
	}
	if id == "" {
		return RejectResult{}, ErrRejectTargetMissing
	}
	if number < 0 {
		number = 0
	}
	return RejectResult{EntryID: id, IssueNumber: number}, nil
}
