package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/communitycontent/internal/storage"
)

func decodeStoredJPEG(t *testing.T, path string) image.Image {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to decode %s: %v", path, err)
	}
	return img
}

func TestProcessBase64ResizesAndStores(t *testing.T) {
	dir := t.TempDir()
	processor := NewImageProcessor(storage.NewLocalStore(dir, ""))

	stored, err := processor.ProcessBase64(context.Background(), "issue-3", encodedPNG(t, 2400, 600))
	if err != nil {
		t.Fatalf("ProcessBase64 returned error: %v", err)
	}
	if stored.ImageURL != "images/issue-3.jpg" || stored.ThumbnailURL != "thumbnails/issue-3.jpg" {
		t.Fatalf("unexpected urls %+v", stored)
	}

	full := decodeStoredJPEG(t, filepath.Join(dir, "images", "issue-3.jpg"))
	if full.Bounds().Dx() != 1200 || full.Bounds().Dy() != 300 {
		t.Fatalf("expected 1200x300, got %v", full.Bounds())
	}
	thumb := decodeStoredJPEG(t, filepath.Join(dir, "thumbnails", "issue-3.jpg"))
	if thumb.Bounds().Dx() != 300 || thumb.Bounds().Dy() != 300 {
		t.Fatalf("expected 300x300 thumbnail, got %v", thumb.Bounds())
	}
}

func TestProcessKeepsSmallImages(t *testing.T) {
	dir := t.TempDir()
	processor := NewImageProcessor(storage.NewLocalStore(dir, "https://cdn.example.org"))

	stored, err := processor.ProcessBase64(context.Background(), "contrib-1", encodedPNG(t, 64, 48))
	if err != nil {
		t.Fatalf("ProcessBase64 returned error: %v", err)
	}
	if stored.ImageURL != "https://cdn.example.org/images/contrib-1.jpg" {
		t.Fatalf("unexpected url %q", stored.ImageURL)
	}
	full := decodeStoredJPEG(t, filepath.Join(dir, "images", "contrib-1.jpg"))
	if full.Bounds().Dx() != 64 || full.Bounds().Dy() != 48 {
		t.Fatalf("small image must not be enlarged, got %v", full.Bounds())
	}
}

func TestProcessRejectsInvalidData(t *testing.T) {
	processor := NewImageProcessor(storage.NewLocalStore(t.TempDir(), ""))

	if _, err := processor.ProcessBase64(context.Background(), "x", "%%%"); !errors.Is(err, ErrImageDataInvalid) {
		t.Fatalf("expected ErrImageDataInvalid, got %v", err)
	}
	if _, err := processor.ProcessBase64(context.Background(), "x", "bm90IGFuIGltYWdl"); !errors.Is(err, ErrImageDataInvalid) {
		t.Fatalf("expected ErrImageDataInvalid, got %v", err)
	}

	var missing *ImageProcessor
	if _, err := missing.Process(context.Background(), "x", []byte("data")); !errors.Is(err, ErrImageStoreMissing) {
		t.Fatalf("expected ErrImageStoreMissing, got %v", err)
	}
}
