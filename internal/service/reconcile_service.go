package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/communitycontent/internal/content"
	"github.com/communitycontent/internal/db"
	"github.com/communitycontent/internal/github"
	"github.com/communitycontent/internal/logging"
	"github.com/communitycontent/internal/metrics"
	"go.uber.org/zap"
)

// ErrReconcileRunning is returned when a run is requested while another
// one is still in progress.
var ErrReconcileRunning = errors.New("reconciliation already running")

// IssueLister lists repository issues.
type IssueLister interface {
	ListIssues(ctx context.Context, opts github.ListOptions) ([]github.Issue, error)
}

// ReconcileResult summarises one merge of issues into entries.
type ReconcileResult struct {
	Entries  []content.Entry
	Added    int
	Rejected int
	Skipped  int
	Expired  int
	Dropped  int
}

// Reconciler merges issues into an entry collection. Entries already
// derived from an issue are kept as they are, so likes survive; a closed
// issue only flips its entry to rejected. New issues are parsed and added.
type Reconciler struct {
	parser     *IssueParser
	images     *ImageProcessor
	ledger     *LedgerService
	maxEntries int
	logger     *zap.SugaredLogger
}

// NewReconciler creates a Reconciler. images and ledger may be nil.
func NewReconciler(parser *IssueParser, images *ImageProcessor, ledger *LedgerService, maxEntries int, logger *zap.SugaredLogger) *Reconciler {
	return &Reconciler{
		parser:     parser,
		images:     images,
		ledger:     ledger,
		maxEntries: maxEntries,
		logger:     logging.OrNop(logger),
	}
}

// ClassifyIssue returns the entry type of an issue from its photo or
// testimonial label, or else from a "type:" title prefix.
func ClassifyIssue(issue github.Issue) (string, bool) {
	switch {
	case issue.HasLabel(content.TypePhoto):
		return content.TypePhoto, true
	case issue.HasLabel(content.TypeTestimonial):
		return content.TypeTestimonial, true
	}
	if m := titlePattern.FindStringSubmatch(strings.TrimSpace(issue.Title)); m != nil {
		if t := content.NormalizeType(m[1]); content.IsKnownType(t) {
			return t, true
		}
	}
	return "", false
}

// Reconcile returns the merged, capped collection. existing is not
// modified. Per-issue problems are logged and never abort the merge.
func (r *Reconciler) Reconcile(ctx context.Context, existing []content.Entry, issues []github.Issue) ReconcileResult {
	entries := content.CloneEntries(existing)
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		index[e.ID] = i
	}

	cutoff, full := retentionCutoff(entries, r.maxEntries)

	var result ReconcileResult
	for _, issue := range issues {
		if issue.IsPullRequest() {
			continue
		}
		kind, ok := ClassifyIssue(issue)
		if !ok {
			r.logger.Infow("issue skipped, no photo or testimonial classification", "issue", issue.Number, "title", issue.Title)
			result.Skipped++
			continue
		}

		id := content.IssueEntryID(issue.Number)
		if i, seen := index[id]; seen {
			if !issue.IsOpen() && !entries[i].IsRejected() {
				entries[i].Moderation = content.ModeratedAt(content.StatusRejected, content.FormatTime(issue.UpdatedAt))
				result.Rejected++
				r.logger.Infow("entry rejected, issue closed", "entry", id, "issue", issue.Number)
			}
			continue
		}
		// retention would drop it again right away
		if full && !issue.CreatedAt.After(cutoff) {
			result.Expired++
			continue
		}

		entry := r.buildEntry(ctx, issue, kind)
		index[id] = len(entries)
		entries = append(entries, entry)
		result.Added++
	}

	before := len(entries)
	result.Entries = content.Retain(entries, r.maxEntries)
	result.Dropped = before - len(result.Entries)
	return result
}

// retentionCutoff returns the timestamp of the oldest entry that survives
// retention when entries already fill the document.
func retentionCutoff(entries []content.Entry, max int) (time.Time, bool) {
	if max <= 0 || len(entries) < max {
		return time.Time{}, false
	}
	kept := content.Retain(entries, max)
	return kept[len(kept)-1].SortTime(), true
}

func (r *Reconciler) buildEntry(ctx context.Context, issue github.Issue, kind string) content.Entry {
	parsed := r.parser.Parse(issue.Title, issue.Body)

	entryType := parsed.Type
	if entryType == "" {
		entryType = kind
	}
	if entryType == "" {
		entryType = content.TypePhoto
	}
	displayName := parsed.DisplayName
	if displayName == "" {
		displayName = content.DefaultDisplayName
	}

	status := content.StatusApproved
	if !issue.IsOpen() {
		status = content.StatusRejected
	}

	created := content.FormatTime(issue.CreatedAt)
	entry := content.Entry{
		ID:          content.IssueEntryID(issue.Number),
		Type:        entryType,
		DisplayName: displayName,
		Content:     parsed.Content,
		Description: parsed.Description,
		LocationID:  parsed.LocationID,
		EventID:     parsed.EventID,
		SessionID:   parsed.SessionID,
		Timestamp:   created,
		CreatedAt:   created,
		Likes:       0,
		LikedBy:     []string{},
		Moderation:  content.ModeratedAt(status, content.FormatTime(issue.UpdatedAt)),
	}

	if content.NormalizeType(entryType) == content.TypePhoto && parsed.Image != nil {
		if stored, ok := r.resolveImage(ctx, issue.Number, entry.ID, *parsed.Image); ok {
			entry.ImageURL = stored.ImageURL
			entry.ThumbnailURL = stored.ThumbnailURL
		}
	}

	if err := r.ledger.RecordIssue(db.ProcessedIssue{
		IssueNumber:  issue.Number,
		EntryID:      entry.ID,
		Type:         entry.Type,
		State:        issue.State,
		ImageURL:     entry.ImageURL,
		ThumbnailURL: entry.ThumbnailURL,
	}); err != nil {
		r.logger.Warnw("ledger write failed", "issue", issue.Number, "error", err)
	}
	return entry
}

// resolveImage returns URLs for an extracted image. Hosted links are used
// as they are; inline payloads are decoded and stored once.
func (r *Reconciler) resolveImage(ctx context.Context, issueNumber int, entryID string, ref ImageRef) (StoredImage, bool) {
	if !ref.IsInline() {
		return StoredImage{ImageURL: ref.URL, ThumbnailURL: ref.URL}, true
	}

	if stored, ok, err := r.ledger.StoredImages(issueNumber); err != nil {
		r.logger.Warnw("ledger lookup failed", "issue", issueNumber, "error", err)
	} else if ok {
		return stored, true
	}

	if r.images == nil {
		r.logger.Warnw("inline image ignored, no image store configured", "issue", issueNumber)
		return StoredImage{}, false
	}
	stored, err := r.images.ProcessBase64(ctx, entryID, ref.Payload)
	if err != nil {
		r.logger.Warnw("inline image could not be stored", "issue", issueNumber, "source", ref.Source, "error", err)
		return StoredImage{}, false
	}
	return stored, true
}

// ReconcileService runs the Reconciler against a document store. Runs are
// serialised; a run requested while another is active is refused.
type ReconcileService struct {
	issues     IssueLister
	store      content.Store
	reconciler *Reconciler
	labels     []string
	logger     *zap.SugaredLogger
	now        func() time.Time
	running    sync.Mutex
}

// NewReconcileService creates a ReconcileService instance.
func NewReconcileService(issues IssueLister, store content.Store, reconciler *Reconciler, label string, logger *zap.SugaredLogger) *ReconcileService {
	var labels []string
	if label = strings.TrimSpace(label); label != "" {
		labels = []string{label}
	}
	return &ReconcileService{
		issues:     issues,
		store:      store,
		reconciler: reconciler,
		labels:     labels,
		logger:     logging.OrNop(logger),
		now:        time.Now,
	}
}

// Run lists every issue and merges it into the stored document. Listing
// errors are fatal and nothing is written.
func (s *ReconcileService) Run(ctx context.Context) (ReconcileResult, error) {
	if !s.running.TryLock() {
		metrics.ReconcileRunsTotal.WithLabelValues("skipped").Inc()
		return ReconcileResult{}, ErrReconcileRunning
	}
	defer s.running.Unlock()

	issues, err := s.issues.ListIssues(ctx, github.ListOptions{State: github.StateAll, Labels: s.labels})
	if err != nil {
		metrics.ReconcileRunsTotal.WithLabelValues("error").Inc()
		return ReconcileResult{}, fmt.Errorf("list issues: %w", err)
	}
	s.logger.Infow("issues fetched", "count", len(issues))

	var result ReconcileResult
	err = content.Update(ctx, s.store, "Synchronise community entries from issues", s.now, func(doc *content.Document) error {
		result = s.reconciler.Reconcile(ctx, doc.Entries, issues)
		doc.Entries = result.Entries
		return nil
	})
	if err != nil {
		metrics.ReconcileRunsTotal.WithLabelValues("error").Inc()
		return ReconcileResult{}, err
	}

	metrics.ReconcileRunsTotal.WithLabelValues("ok").Inc()
	metrics.EntriesRetained.Set(float64(len(result.Entries)))
	s.logger.Infow("reconciliation finished",
		"entries", len(result.Entries),
		"added", result.Added,
		"rejected", result.Rejected,
		"skipped", result.Skipped,
		"expired", result.Expired,
		"dropped", result.Dropped,
	)
	return result, nil
}
