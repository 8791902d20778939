package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/communitycontent/internal/config"
)

// ErrInvalidName rejects object names that would escape the store root.
var ErrInvalidName = errors.New("invalid object name")

// ImageStore persists processed images and returns their public URL.
type ImageStore interface {
	Save(ctx context.Context, name string, data []byte, contentType string) (string, error)
}

// ImageName is the object name of a full-size image for an entry.
func ImageName(entryID string) string {
	return "images/" + entryID + ".jpg"
}

// ThumbnailName is the object name of a thumbnail for an entry.
func ThumbnailName(entryID string) string {
	return "thumbnails/" + entryID + ".jpg"
}

func cleanName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrInvalidName
	}
	cleaned := path.Clean("/" + name)[1:]
	if cleaned == "" || cleaned != strings.TrimPrefix(name, "/") || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidName
	}
	return cleaned, nil
}

func joinURL(base, name string) string {
	return strings.TrimRight(base, "/") + "/" + name
}

// NewImageStore returns the store selected by IMAGE_STORE.
func NewImageStore(ctx context.Context, cfg config.AppConfig) (ImageStore, error) {
	switch cfg.ImageStore {
	case "", "local":
		return NewLocalStore(cfg.ImageDir, cfg.ImageBaseURL), nil
	case "minio":
		return NewMinioStore(ctx, cfg.MinIO)
	default:
		return nil, fmt.Errorf("unknown image store %q", cfg.ImageStore)
	}
}
