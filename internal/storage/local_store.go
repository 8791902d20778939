package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/communitycontent/internal/content"
)

// LocalStore writes images below a directory, typically a checkout of the
// content repository, and serves them from baseURL.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates a store rooted at dir.
func NewLocalStore(dir, baseURL string) *LocalStore {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		dir = "."
	}
	return &LocalStore{root: dir, baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/")}
}

// Save writes data to root/name and returns its URL.
func (s *LocalStore) Save(_ context.Context, name string, data []byte, _ string) (string, error) {
	cleaned, err := cleanName(name)
	if err != nil {
		return "", err
	}

	target := filepath.Join(s.root, filepath.FromSlash(cleaned))
	if err := content.WriteFileAtomic(target, data); err != nil {
		return "", fmt.Errorf("write image %s: %w", cleaned, err)
	}

	if s.baseURL == "" {
		return cleaned, nil
	}
	return joinURL(s.baseURL, cleaned), nil
}
