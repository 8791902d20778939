package github

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/communitycontent/internal/content"
)

// ContentsStore keeps the published document in a repository file. The
// revision is the blob sha returned by the contents API.
type ContentsStore struct {
	client *Client
	path   string
	branch string
	now    func() time.Time
}

// NewContentsStore creates a store for path on branch.
func NewContentsStore(client *Client, path, branch string) *ContentsStore {
	return &ContentsStore{
		client: client,
		path:   strings.Trim(strings.TrimSpace(path), "/"),
		branch: strings.TrimSpace(branch),
		now:    time.Now,
	}
}

// Load fetches and decodes the document. A missing file yields an empty
// document with an empty revision.
func (s *ContentsStore) Load(ctx context.Context) (*content.Document, content.Revision, error) {
	file, err := s.client.GetContents(ctx, s.path, s.branch)
	if err != nil {
		if IsNotFound(err) {
			return content.NewDocument(s.now()), "", nil
		}
		return nil, "", err
	}

	doc, err := content.Decode(file.Content)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", s.path, err)
	}
	return doc, content.Revision(file.SHA), nil
}

// Save commits doc conditioned on rev. A stale sha is content.ErrConflict.
func (s *ContentsStore) Save(ctx context.Context, doc *content.Document, rev content.Revision, message string) error {
	data, err := content.Encode(doc)
	if err != nil {
		return err
	}
	if strings.TrimSpace(message) == "" {
		message = "Update community content"
	}

	_, err = s.client.PutContents(ctx, s.path, PutFile{
		Message: message,
		Content: data,
		SHA:     string(rev),
		Branch:  s.branch,
	})
	if err != nil {
		if IsConflict(err) {
			return fmt.Errorf("%w: %v", content.ErrConflict, err)
		}
		return err
	}
	return nil
}

// Location describes where the document lives, for logs.
func (s *ContentsStore) Location() string {
	if s.branch == "" {
		return s.client.Repository() + "/" + s.path
	}
	return s.client.Repository() + "@" + s.branch + "/" + s.path
}
