package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/communitycontent/internal/content"
	"github.com/communitycontent/internal/github"
)

type fakeIssueCloser struct {
	issues map[int]*github.Issue
	closed []int
}

func newFakeIssueCloser(issues ...github.Issue) *fakeIssueCloser {
	f := &fakeIssueCloser{issues: map[int]*github.Issue{}}
	for i := range issues {
		issue := issues[i]
		f.issues[issue.Number] = &issue
	}
	return f
}

func (f *fakeIssueCloser) GetIssue(_ context.Context, number int) (*github.Issue, error) {
	issue, ok := f.issues[number]
	if !ok {
		return nil, &github.APIError{Op: "get issue", StatusCode: http.StatusNotFound, Message: "Not Found"}
	}
	copied := *issue
	return &copied, nil
}

func (f *fakeIssueCloser) CloseIssue(_ context.Context, number int) (*github.Issue, error) {
	issue, ok := f.issues[number]
	if !ok {
		return nil, &github.APIError{Op: "close issue", StatusCode: http.StatusNotFound, Message: "Not Found"}
	}
	issue.State = github.StateClosed
	f.closed = append(f.closed, number)
	copied := *issue
	return &copied, nil
}

func TestApplyRejectionKeepsFields(t *testing.T) {
	entry := testEntry("issue-4", "2024-06-01T10:00:00.000Z")
	entry.LikedBy = []string{"s1", "s2"}
	entry.Likes = 2
	entry.ImageURL = "https://cdn.example.org/a.jpg"
	entries := []content.Entry{entry}
	now := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)

	out, changed, err := ApplyRejection(entries, "issue-4", "spam", now)
	if err != nil || !changed {
		t.Fatalf("expected rejection, got %v %v", changed, err)
	}
	got := out[0]
	if got.Moderation.Status != content.StatusRejected || got.Moderation.Reason != "spam" {
		t.Fatalf("unexpected moderation %+v", got.Moderation)
	}
	if got.Moderation.ModeratedAt == nil || *got.Moderation.ModeratedAt != "2024-07-01T12:00:00.000Z" {
		t.Fatalf("unexpected moderatedAt %v", got.Moderation.ModeratedAt)
	}

	got.Moderation = entry.Moderation
	if got.ID != entry.ID || got.Likes != 2 || len(got.LikedBy) != 2 || got.ImageURL != entry.ImageURL || got.Content != entry.Content {
		t.Fatalf("rejection changed other fields: %+v", got)
	}
	if entries[0].Moderation.Status != content.StatusApproved {
		t.Fatalf("input must not be modified")
	}

	_, changed, err = ApplyRejection(out, "issue-4", "again", now.Add(time.Hour))
	if err != nil || changed {
		t.Fatalf("expected second rejection to be a no-op, got %v %v", changed, err)
	}
	if _, _, err := ApplyRejection(out, "issue-5", "", now); !errors.Is(err, content.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestRejectEntryClosesIssueAndPublishes(t *testing.T) {
	store := setupFileStore(t, testEntry("issue-4", "2024-06-01T10:00:00.000Z"))
	closer := newFakeIssueCloser(testIssue(4, github.StateOpen, "testimonial: Eve", "", "testimonial"))
	ledger := setupLedger(t)
	svc := NewModerationService(closer, store, ledger, nil)

	result, err := svc.RejectEntry(context.Background(), RejectRequest{IssueNumber: 4, Reason: "hors sujet", Source: SourceDeleteIssue, Publish: true})
	if err != nil {
		t.Fatalf("RejectEntry returned error: %v", err)
	}
	if result.EntryID != "issue-4" || !result.IssueClosed || result.Method != MethodDirect {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(closer.closed) != 1 || closer.closed[0] != 4 {
		t.Fatalf("expected issue 4 to be closed, got %v", closer.closed)
	}

	stored := loadEntries(t, store)
	if stored[0].Moderation.Status != content.StatusRejected || stored[0].Moderation.Reason != "hors sujet" {
		t.Fatalf("expected stored entry to be rejected, got %+v", stored[0].Moderation)
	}

	events, err := ledger.ModerationHistory("issue-4")
	if err != nil {
		t.Fatalf("ModerationHistory returned error: %v", err)
	}
	if len(events) != 1 || events[0].Method != MethodDirect || events[0].Source != SourceDeleteIssue {
		t.Fatalf("unexpected moderation events %+v", events)
	}
}

func TestRejectEntryDoesNotReopenOrRecloseClosedIssue(t *testing.T) {
	closer := newFakeIssueCloser(testIssue(4, github.StateClosed, "testimonial: Eve", "", "testimonial"))
	svc := NewModerationService(closer, nil, nil, nil)

	result, err := svc.RejectEntry(context.Background(), RejectRequest{EntryID: "issue-4"})
	if err != nil {
		t.Fatalf("RejectEntry returned error: %v", err)
	}
	if result.IssueClosed || len(closer.closed) != 0 {
		t.Fatalf("closed issue must not be closed again, got %+v", result)
	}
	if result.Method != MethodWorkflow || result.IssueNumber != 4 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestRejectEntryMissingIssue(t *testing.T) {
	svc := NewModerationService(newFakeIssueCloser(), setupFileStore(t), nil, nil)
	_, err := svc.RejectEntry(context.Background(), RejectRequest{IssueNumber: 99, Publish: true})
	if !github.IsNotFound(err) {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestRejectEntryFallsBackWhenPublishFails(t *testing.T) {
	closer := newFakeIssueCloser(testIssue(6, github.StateOpen, "photo: Zed", "", "photo"))
	// the entry is not in the document yet
	svc := NewModerationService(closer, setupFileStore(t), nil, nil)

	result, err := svc.RejectEntry(context.Background(), RejectRequest{IssueNumber: 6, Publish: true})
	if err != nil {
		t.Fatalf("RejectEntry returned error: %v", err)
	}
	if result.Method != MethodDirectFallback || !result.IssueClosed {
		t.Fatalf("expected direct-fallback with closed issue, got %+v", result)
	}
}

func TestRejectEntryWithoutIssue(t *testing.T) {
	store := setupFileStore(t, testEntry("contrib-1717236000000-abc", "2024-06-01T10:00:00.000Z"))
	svc := NewModerationService(nil, store, nil, nil)

	result, err := svc.RejectEntry(context.Background(), RejectRequest{EntryID: "contrib-1717236000000-abc", Publish: true})
	if err != nil {
		t.Fatalf("RejectEntry returned error: %v", err)
	}
	if result.Method != MethodDirect || result.IssueNumber != 0 {
		t.Fatalf("unexpected result %+v", result)
	}

	if _, err := svc.RejectEntry(context.Background(), RejectRequest{EntryID: "contrib-missing", Publish: true}); !errors.Is(err, content.ErrEntryNotFound) {
		t.Fatalf("expected ErrEntryNotFound, got %v", err)
	}
	if _, err := svc.RejectEntry(context.Background(), RejectRequest{EntryID: "contrib-1717236000000-abc"}); !errors.Is(err, ErrPublishUnavailable) {
		t.Fatalf("expected ErrPublishUnavailable, got %v", err)
	}
	if _, err := svc.RejectEntry(context.Background(), RejectRequest{}); !errors.Is(err, ErrRejectTargetMissing) {
		t.Fatalf("expected ErrRejectTargetMissing, got %v", err)
	}
}
