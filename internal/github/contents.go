package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// FileContent is a decoded file from the contents API.
type FileContent struct {
	Path    string
	SHA     string
	Content []byte
}

type contentsResponse struct {
	Type     string `json:"type"`
	Path     string `json:"path"`
	SHA      string `json:"sha"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

type blobResponse struct {
	SHA      string `json:"sha"`
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// PutFile is the payload for creating or updating a file. SHA must be the
// blob sha that was read; leave it empty only when creating the file.
type PutFile struct {
	Message string
	Content []byte
	SHA     string
	Branch  string
}

type putContentsRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	SHA     string `json:"sha,omitempty"`
	Branch  string `json:"branch,omitempty"`
}

type putContentsResponse struct {
	Content struct {
		SHA string `json:"sha"`
	} `json:"content"`
}

func contentsPath(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return "/contents/" + strings.Join(segments, "/")
}

// GetContents reads a file at ref (branch, tag or sha; empty for the
// default branch). A missing file is an *APIError with status 404.
func (c *Client) GetContents(ctx context.Context, path, ref string) (*FileContent, error) {
	endpoint := c.repoPath("%s", contentsPath(path))
	if ref = strings.TrimSpace(ref); ref != "" {
		endpoint += "?ref=" + url.QueryEscape(ref)
	}

	var resp contentsResponse
	if err := c.do(ctx, "get contents", http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	if resp.Type != "" && resp.Type != "file" {
		return nil, fmt.Errorf("github get contents: %s is a %s, not a file", path, resp.Type)
	}

	raw := resp.Content
	encoding := resp.Encoding
	// files over 1 MB come back without inline content
	if encoding == "none" || (raw == "" && resp.SHA != "") {
		var blob blobResponse
		if err := c.do(ctx, "get blob", http.MethodGet, c.repoPath("/git/blobs/%s", resp.SHA), nil, &blob); err != nil {
			return nil, err
		}
		raw, encoding = blob.Content, blob.Encoding
	}

	data, err := decodeContent(raw, encoding)
	if err != nil {
		return nil, fmt.Errorf("github get contents %s: %w", path, err)
	}
	return &FileContent{Path: resp.Path, SHA: resp.SHA, Content: data}, nil
}

// PutContents writes a file and returns the new blob sha.
func (c *Client) PutContents(ctx context.Context, path string, file PutFile) (string, error) {
	payload := putContentsRequest{
		Message: file.Message,
		Content: base64.StdEncoding.EncodeToString(file.Content),
		SHA:     file.SHA,
		Branch:  strings.TrimSpace(file.Branch),
	}

	var resp putContentsResponse
	if err := c.do(ctx, "put contents", http.MethodPut, c.repoPath("%s", contentsPath(path)), payload, &resp); err != nil {
		return "", err
	}
	return resp.Content.SHA, nil
}

func decodeContent(raw, encoding string) ([]byte, error) {
	switch strings.ToLower(encoding) {
	case "", "base64":
		cleaned := strings.NewReplacer("\n", "", "\r", "").Replace(raw)
		return base64.StdEncoding.DecodeString(cleaned)
	case "utf-8", "utf8":
		return []byte(raw), nil
	default:
		return nil, fmt.Errorf("unsupported encoding %q", encoding)
	}
}
