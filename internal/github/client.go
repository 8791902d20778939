package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.github.com"
	userAgent      = "community-content-proxy/1.0"
	maxBodyBytes   = 8 << 20
)

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the GitHub REST API on behalf of one repository.
type Client struct {
	http    httpDoer
	baseURL string
	token   string
	owner   string
	repo    string
}

// NewClient creates a client for owner/repo authenticated with token.
func NewClient(token, owner, repo string) *Client {
	return &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: defaultBaseURL,
		token:   strings.TrimSpace(token),
		owner:   strings.TrimSpace(owner),
		repo:    strings.TrimSpace(repo),
	}
}

// SetHTTPClient overrides the transport, mainly for tests.
func (c *Client) SetHTTPClient(client httpDoer) {
	if client == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
		return
	}
	c.http = client
}

// SetBaseURL points the client at another API root (GitHub Enterprise, tests).
func (c *Client) SetBaseURL(base string) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = defaultBaseURL
	}
	c.baseURL = base
}

// ForRepository returns a client sharing transport and credentials that
// targets another repository.
func (c *Client) ForRepository(owner, repo string) *Client {
	clone := *c
	clone.owner = strings.TrimSpace(owner)
	clone.repo = strings.TrimSpace(repo)
	return &clone
}

// Repository returns "owner/repo".
func (c *Client) Repository() string {
	return c.owner + "/" + c.repo
}

func (c *Client) repoPath(format string, args ...any) string {
	return fmt.Sprintf("/repos/%s/%s", c.owner, c.repo) + fmt.Sprintf(format, args...)
}

// do sends a request and decodes a JSON response into out when out is not nil.
func (c *Client) do(ctx context.Context, op, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("github %s: encode request: %w", op, err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("github %s: build request: %w", op, err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	client := c.http
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("github %s: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("github %s: read response: %w", op, err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return newAPIError(op, resp.StatusCode, respBody)
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("github %s: decode response: %w", op, err)
	}
	return nil
}
