package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	StateOpen   = "open"
	StateClosed = "closed"
	StateAll    = "all"

	perPage  = 100
	maxPages = 50
)

// Label is an issue label.
type Label struct {
	Name string `json:"name"`
}

// PullRequestRef is set on issues-API items that are pull requests.
type PullRequestRef struct {
	URL string `json:"url"`
}

// Issue is the subset of the GitHub issue resource this service reads.
type Issue struct {
	Number      int             `json:"number"`
	Title       string          `json:"title"`
	Body        string          `json:"body"`
	State       string          `json:"state"`
	Labels      []Label         `json:"labels"`
	HTMLURL     string          `json:"html_url"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	PullRequest *PullRequestRef `json:"pull_request,omitempty"`
}

// IsPullRequest reports whether the issues API returned a pull request.
func (i Issue) IsPullRequest() bool {
	return i.PullRequest != nil
}

// IsOpen reports whether the issue is open.
func (i Issue) IsOpen() bool {
	return strings.EqualFold(i.State, StateOpen)
}

// HasLabel matches a label name case-insensitively.
func (i Issue) HasLabel(name string) bool {
	for _, l := range i.Labels {
		if strings.EqualFold(l.Name, name) {
			return true
		}
	}
	return false
}

// NewIssue is the payload for creating an issue.
type NewIssue struct {
	Title  string   `json:"title"`
	Body   string   `json:"body"`
	Labels []string `json:"labels,omitempty"`
}

// IssueUpdate carries the fields to patch. Empty fields are left untouched.
type IssueUpdate struct {
	State  string   `json:"state,omitempty"`
	Labels []string `json:"labels,omitempty"`
}

// ListOptions filters ListIssues.
type ListOptions struct {
	State  string
	Labels []string
}

// CreateIssue opens a new issue.
func (c *Client) CreateIssue(ctx context.Context, issue NewIssue) (*Issue, error) {
	var created Issue
	if err := c.do(ctx, "create issue", http.MethodPost, c.repoPath("/issues"), issue, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetIssue fetches issue n.
func (c *Client) GetIssue(ctx context.Context, number int) (*Issue, error) {
	var issue Issue
	if err := c.do(ctx, "get issue", http.MethodGet, c.repoPath("/issues/%d", number), nil, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// UpdateIssue patches issue n.
func (c *Client) UpdateIssue(ctx context.Context, number int, update IssueUpdate) (*Issue, error) {
	var issue Issue
	if err := c.do(ctx, "update issue", http.MethodPatch, c.repoPath("/issues/%d", number), update, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// CloseIssue sets the state of issue n to closed. Closing a closed issue
// succeeds.
func (c *Client) CloseIssue(ctx context.Context, number int) (*Issue, error) {
	return c.UpdateIssue(ctx, number, IssueUpdate{State: StateClosed})
}

// ListIssues returns every issue matching opts, following pagination.
func (c *Client) ListIssues(ctx context.Context, opts ListOptions) ([]Issue, error) {
	state := strings.TrimSpace(opts.State)
	if state == "" {
		state = StateAll
	}

	query := url.Values{}
	query.Set("state", state)
	query.Set("per_page", strconv.Itoa(perPage))
	if labels := joinLabels(opts.Labels); labels != "" {
		query.Set("labels", labels)
	}

	var all []Issue
	for page := 1; page <= maxPages; page++ {
		query.Set("page", strconv.Itoa(page))
		var batch []Issue
		path := c.repoPath("/issues") + "?" + query.Encode()
		if err := c.do(ctx, fmt.Sprintf("list issues page %d", page), http.MethodGet, path, nil, &batch); err != nil {
			return nil, err
		}
		all = append(all, batch...)
		if len(batch) < perPage {
			break
		}
	}
	return all, nil
}

func joinLabels(labels []string) string {
	cleaned := make([]string, 0, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			cleaned = append(cleaned, l)
		}
	}
	return strings.Join(cleaned, ",")
}
