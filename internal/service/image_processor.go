package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"strings"

	"github.com/communitycontent/internal/storage"
	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

var (
	ErrImageDataInvalid  = errors.New("image data is invalid")
	ErrImageStoreMissing = errors.New("image store is not configured")
)

const (
	fullMaxWidth     = 1200
	fullMaxHeight    = 900
	fullQuality      = 85
	thumbnailSize    = 300
	thumbnailQuality = 80
)

// StoredImage holds the public URLs of a processed image.
type StoredImage struct {
	ImageURL     string
	ThumbnailURL string
}

// ImageProcessor decodes submitted images, produces a bounded full-size
// JPEG and a square thumbnail, and hands both to an ImageStore.
type ImageProcessor struct {
	store storage.ImageStore
}

// NewImageProcessor creates a processor writing to store.
func NewImageProcessor(store storage.ImageStore) *ImageProcessor {
	return &ImageProcessor{store: store}
}

// ProcessBase64 decodes a base64 payload and stores it for entryID.
func (p *ImageProcessor) ProcessBase64(ctx context.Context, entryID, payload string) (StoredImage, error) {
	data, err := decodeBase64Image(payload)
	if err != nil {
		return StoredImage{}, err
	}
	return p.Process(ctx, entryID, data)
}

// Process resizes raw image bytes and stores them for entryID.
func (p *ImageProcessor) Process(ctx context.Context, entryID string, data []byte) (StoredImage, error) {
	if p == nil || p.store == nil {
		return StoredImage{}, ErrImageStoreMissing
	}

	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return StoredImage{}, fmt.Errorf("%w: %v", ErrImageDataInvalid, err)
	}

	full, err := encodeJPEG(fitInside(src, fullMaxWidth, fullMaxHeight), fullQuality)
	if err != nil {
		return StoredImage{}, err
	}
	thumb, err := encodeJPEG(coverSquare(src, thumbnailSize), thumbnailQuality)
	if err != nil {
		return StoredImage{}, err
	}

	imageURL, err := p.store.Save(ctx, storage.ImageName(entryID), full, "image/jpeg")
	if err != nil {
		return StoredImage{}, fmt.Errorf("store image: %w", err)
	}
	thumbURL, err := p.store.Save(ctx, storage.ThumbnailName(entryID), thumb, "image/jpeg")
	if err != nil {
		return StoredImage{}, fmt.Errorf("store thumbnail: %w", err)
	}
	return StoredImage{ImageURL: imageURL, ThumbnailURL: thumbURL}, nil
}

func decodeBase64Image(payload string) ([]byte, error) {
	cleaned := strings.Join(strings.Fields(payload), "")
	if cleaned == "" {
		return nil, ErrImageDataInvalid
	}
	for _, enc := range []*base64.Encoding{base64.StdEncoding, base64.RawStdEncoding, base64.URLEncoding, base64.RawURLEncoding} {
		if data, err := enc.DecodeString(cleaned); err == nil {
			return data, nil
		}
	}
	return nil, fmt.Errorf("%w: malformed base64", ErrImageDataInvalid)
}

// fitInside scales src down so it fits in maxW x maxH, keeping the aspect
// ratio. Smaller images are not enlarged.
func fitInside(src image.Image, maxW, maxH int) image.Image {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= maxW && h <= maxH {
		return flatten(src, b, w, h)
	}

	scale := min(float64(maxW)/float64(w), float64(maxH)/float64(h))
	dw := max(1, int(float64(w)*scale+0.5))
	dh := max(1, int(float64(h)*scale+0.5))
	return flatten(src, b, dw, dh)
}

// coverSquare crops the centre of src to a square and scales it to size.
func coverSquare(src image.Image, size int) image.Image {
	b := src.Bounds()
	side := min(b.Dx(), b.Dy())
	x0 := b.Min.X + (b.Dx()-side)/2
	y0 := b.Min.Y + (b.Dy()-side)/2
	crop := image.Rect(x0, y0, x0+side, y0+side)
	return flatten(src, crop, size, size)
}

// flatten draws the srcRect part of src onto a white w x h canvas, since
// JPEG has no alpha channel.
func flatten(src image.Image, srcRect image.Rectangle, w, h int) image.Image {
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, srcRect, draw.Over, nil)
	return dst
}

func encodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}
