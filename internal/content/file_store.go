package content

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileStore keeps the document in a local JSON file. The revision is the
// sha256 of the bytes that were read.
type FileStore struct {
	path string
	now  func() time.Time
}

// NewFileStore creates a store for path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path, now: time.Now}
}

// Path returns the file location.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the document. A missing file yields an empty document and an
// empty revision.
func (s *FileStore) Load(_ context.Context) (*Document, Revision, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDocument(s.now()), "", nil
		}
		return nil, "", fmt.Errorf("read %s: %w", s.path, err)
	}
	doc, err := Decode(data)
	if err != nil {
		return nil, "", fmt.Errorf("%s: %w", s.path, err)
	}
	return doc, checksum(data), nil
}

// Save writes doc atomically if the file still matches rev.
func (s *FileStore) Save(_ context.Context, doc *Document, rev Revision, _ string) error {
	current, err := s.currentRevision()
	if err != nil {
		return err
	}
	if current != rev {
		return ErrConflict
	}

	data, err := Encode(doc)
	if err != nil {
		return err
	}
	return writeFileAtomic(s.path, data)
}

func (s *FileStore) currentRevision() (Revision, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", s.path, err)
	}
	return checksum(data), nil
}

func checksum(data []byte) Revision {
	sum := sha256.Sum256(data)
	return Revision(hex.EncodeToString(sum[:]))
}

// writeFileAtomic writes to a temp file in the same directory, fsyncs and
// renames it over path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("fsync temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}

// WriteFileAtomic replaces path with data without exposing a partial file.
func WriteFileAtomic(path string, data []byte) error {
	return writeFileAtomic(path, data)
}
