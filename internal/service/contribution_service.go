package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/communitycontent/internal/content"
	"github.com/communitycontent/internal/github"
	"github.com/communitycontent/internal/logging"
	"github.com/communitycontent/internal/metrics"
	"github.com/microcosm-cc/bluemonday"
	"go.uber.org/zap"
)

var (
	ErrContributionIncomplete = errors.New("entry and session id are required")
	ErrDisplayNameRequired    = errors.New("display name is required")
	ErrIssueFieldsRequired    = errors.New("issue title and body are required")
)

// IssueCreator opens issues.
type IssueCreator interface {
	CreateIssue(ctx context.Context, issue github.NewIssue) (*github.Issue, error)
}

// ContributionResult is returned to the submitter.
type ContributionResult struct {
	IssueNumber  int
	EntryID      string
	DeployMethod string
	Duplicate    bool
}

// ContributionService turns submissions into issues and, when direct
// deploy is on, publishes them right away.
type ContributionService struct {
	issues       IssueCreator
	store        content.Store
	cache        SubmissionCache
	maxEntries   int
	directDeploy bool
	policy       *bluemonday.Policy
	logger       *zap.SugaredLogger
	now          func() time.Time
}

// ContributionOptions configures a ContributionService.
type ContributionOptions struct {
	Store        content.Store
	Cache        SubmissionCache
	MaxEntries   int
	DirectDeploy bool
	Logger       *zap.SugaredLogger
}

// NewContributionService creates a ContributionService instance.
func NewContributionService(issues IssueCreator, opts ContributionOptions) *ContributionService {
	return &ContributionService{
		issues:       issues,
		store:        opts.Store,
		cache:        opts.Cache,
		maxEntries:   opts.MaxEntries,
		directDeploy: opts.DirectDeploy && opts.Store != nil,
		policy:       bluemonday.StrictPolicy(),
		logger:       logging.OrNop(opts.Logger),
		now:          time.Now,
	}
}

// DirectDeploy reports whether new contributions are published directly.
func (s *ContributionService) DirectDeploy() bool {
	return s.directDeploy
}

// Sanitize strips markup from every text field, flattens single-line
// fields and fills ids, timestamps and moderation defaults.
func (s *ContributionService) Sanitize(c Contribution) Contribution {
	now := s.now()
	out := Contribution{
		ID:               s.singleLine(c.ID),
		Type:             s.singleLine(c.Type),
		DisplayName:      s.singleLine(c.DisplayName),
		Content:          s.text(c.Content),
		Description:      s.text(c.Description),
		ImageURL:         strings.TrimSpace(c.ImageURL),
		LocationID:       s.singleLine(c.LocationID),
		EventID:          s.singleLine(c.EventID),
		Timestamp:        normalizeTimestamp(c.Timestamp),
		CreatedAt:        normalizeTimestamp(c.CreatedAt),
		ModerationStatus: content.NormalizeStatus(c.ModerationStatus),
		SessionID:        s.singleLine(c.SessionID),
	}

	if out.Type == "" {
		out.Type = content.TypePhoto
	}
	if out.ID == "" {
		out.ID = content.NewContributionID(now)
	}
	if out.Timestamp == "" {
		out.Timestamp = content.FormatTime(now)
	}
	if out.CreatedAt == "" {
		out.CreatedAt = out.Timestamp
	}
	// a new submission can never arrive already rejected
	if out.ModerationStatus == content.StatusRejected {
		out.ModerationStatus = content.StatusPending
	}
	if !acceptableImageURL(out.ImageURL) {
		out.ImageURL = ""
	}
	return out
}

// Create validates c, opens its issue and publishes it when direct deploy
// is enabled. A failed publish never fails the submission.
func (s *ContributionService) Create(ctx context.Context, c Contribution) (ContributionResult, error) {
	clientID := strings.TrimSpace(c.ID)
	c = s.Sanitize(c)
	if c.SessionID == "" {
		return ContributionResult{}, ErrContributionIncomplete
	}
	if c.DisplayName == "" {
		return ContributionResult{}, ErrDisplayNameRequired
	}

	key := SubmissionKey(clientID, c.SessionID)
	if number, ok := s.lookupSubmission(ctx, key); ok {
		s.logger.Infow("duplicate submission, reusing issue", "issue", number, "entry", clientID)
		return ContributionResult{
			IssueNumber:  number,
			EntryID:      content.IssueEntryID(number),
			DeployMethod: MethodWorkflow,
			Duplicate:    true,
		}, nil
	}

	issue, err := s.issues.CreateIssue(ctx, github.NewIssue{
		Title:  c.IssueTitle(),
		Body:   c.IssueBody(),
		Labels: c.IssueLabels(),
	})
	if err != nil {
		return ContributionResult{}, fmt.Errorf("create issue: %w", err)
	}
	s.logger.Infow("contribution issue created", "issue", issue.Number, "type", c.Type, "display_name", c.DisplayName)

	if key != "" && s.cache != nil {
		if err := s.cache.Remember(ctx, key, issue.Number); err != nil {
			s.logger.Warnw("submission cache write failed", "issue", issue.Number, "error", err)
		}
	}

	result := ContributionResult{
		IssueNumber:  issue.Number,
		EntryID:      content.IssueEntryID(issue.Number),
		DeployMethod: MethodWorkflow,
	}
	if s.directDeploy {
		if err := s.publish(ctx, c, issue.Number); err != nil {
			s.logger.Warnw("direct deploy failed, leaving it to reconciliation", "issue", issue.Number, "error", err)
			result.DeployMethod = MethodDirectFallback
		} else {
			result.DeployMethod = MethodDirect
		}
	}

	metrics.ContributionsTotal.WithLabelValues(result.DeployMethod).Inc()
	return result, nil
}

// CreateRawIssue forwards a free-form issue.
func (s *ContributionService) CreateRawIssue(ctx context.Context, title, body string, labels []string) (*github.Issue, error) {
	title = strings.TrimSpace(title)
	if title == "" || strings.TrimSpace(body) == "" {
		return nil, ErrIssueFieldsRequired
	}
	issue, err := s.issues.CreateIssue(ctx, github.NewIssue{Title: title, Body: body, Labels: labels})
	if err != nil {
		return nil, fmt.Errorf("create issue: %w", err)
	}
	s.logger.Infow("issue created", "issue", issue.Number, "title", title)
	return issue, nil
}

func (s *ContributionService) publish(ctx context.Context, c Contribution, issueNumber int) error {
	entry := c.PublishedEntry(issueNumber, content.FormatTime(s.now()))
	message := fmt.Sprintf("Direct deploy: Add %s %q [%s]", entry.Type, entry.DisplayName, entry.ID)
	return content.Update(ctx, s.store, message, s.now, func(doc *content.Document) error {
		doc.Upsert(entry)
		doc.Entries = content.Retain(doc.Entries, s.maxEntries)
		return nil
	})
}

func (s *ContributionService) lookupSubmission(ctx context.Context, key string) (int, bool) {
	if key == "" || s.cache == nil {
		return 0, false
	}
	number, ok, err := s.cache.Lookup(ctx, key)
	if err != nil {
		s.logger.Warnw("submission cache read failed", "error", err)
		return 0, false
	}
	return number, ok
}

// text removes markup and entities introduced by the sanitizer.
func (s *ContributionService) text(value string) string {
	value = strings.ReplaceAll(value, "\r\n", "\n")
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(value)))
}

func (s *ContributionService) singleLine(value string) string {
	return strings.Join(strings.Fields(s.text(value)), " ")
}

// normalizeTimestamp accepts RFC 3339 strings and epoch milliseconds.
func normalizeTimestamp(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	if t, ok := content.ParseTime(value); ok {
		return content.FormatTime(t)
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil && ms > 0 {
		return content.TimestampFromMillis(ms)
	}
	return ""
}

// acceptableImageURL allows http(s) links and legacy inline images that
// can be embedded in Markdown unchanged.
func acceptableImageURL(value string) bool {
	if value == "" || strings.ContainsAny(value, " \t\r\n()<>") {
		return false
	}
	return isHTTPURL(value) || strings.HasPrefix(value, "data:image/")
}
