package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/communitycontent/internal/content"
	"github.com/communitycontent/internal/logging"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var ErrImageDownload = errors.New("image download failed")

type httpDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// IngestInput is a single contribution handed over by a workflow.
type IngestInput struct {
	ID          string `validate:"required"`
	Type        string `validate:"required,oneof=photo testimonial"`
	ImageURL    string `validate:"omitempty,url"`
	DisplayName string
	EventID     string
	LocationID  string
	Content     string
	Timestamp   string
}

// IngestService adds one contribution straight to a document.
type IngestService struct {
	images     *ImageProcessor
	hosted     []string
	http       httpDoer
	maxEntries int
	validate   *validator.Validate
	logger     *zap.SugaredLogger
	now        func() time.Time
}

// NewIngestService creates an IngestService. Images whose URL starts with
// one of hostedPrefixes are referenced as they are; other images are
// downloaded and stored through images.
func NewIngestService(images *ImageProcessor, hostedPrefixes []string, maxEntries int, logger *zap.SugaredLogger) *IngestService {
	return &IngestService{
		images:     images,
		hosted:     hostedPrefixes,
		http:       &http.Client{Timeout: 60 * time.Second},
		maxEntries: maxEntries,
		validate:   validator.New(),
		logger:     logging.OrNop(logger),
		now:        time.Now,
	}
}

// SetHTTPClient overrides the image download client, mainly for tests.
func (s *IngestService) SetHTTPClient(client httpDoer) {
	if client == nil {
		s.http = &http.Client{Timeout: 60 * time.Second}
		return
	}
	s.http = client
}

// Ingest builds the entry for in and upserts it into store.
func (s *IngestService) Ingest(ctx context.Context, store content.Store, in IngestInput) (content.Entry, error) {
	in.Type = content.NormalizeType(in.Type)
	if err := s.validate.Struct(in); err != nil {
		return content.Entry{}, fmt.Errorf("invalid contribution: %w", err)
	}

	now := s.now()
	entry := content.Entry{
		ID:          strings.TrimSpace(in.ID),
		Type:        in.Type,
		DisplayName: strings.TrimSpace(in.DisplayName),
		EventID:     strings.TrimSpace(in.EventID),
		LocationID:  strings.TrimSpace(in.LocationID),
		Timestamp:   normalizeTimestamp(in.Timestamp),
		LikedBy:     []string{},
		Moderation:  content.ModeratedNow(content.StatusApproved, now),
	}
	if entry.DisplayName == "" {
		entry.DisplayName = content.DefaultDisplayName
	}
	if entry.Timestamp == "" {
		entry.Timestamp = content.FormatTime(now)
	}

	switch entry.Type {
	case content.TypePhoto:
		if url := strings.TrimSpace(in.ImageURL); url != "" {
			stored, err := s.storeImage(ctx, entry.ID, url)
			if err != nil {
				return content.Entry{}, err
			}
			entry.ImageURL = stored.ImageURL
			entry.ThumbnailURL = stored.ThumbnailURL
		}
	case content.TypeTestimonial:
		entry.Content = strings.TrimSpace(in.Content)
	}

	message := fmt.Sprintf("Add contribution %s (%s)", entry.ID, entry.Type)
	err := content.Update(ctx, store, message, s.now, func(doc *content.Document) error {
		doc.Upsert(entry)
		doc.Entries = content.Retain(doc.Entries, s.maxEntries)
		return nil
	})
	if err != nil {
		return content.Entry{}, err
	}
	s.logger.Infow("contribution ingested", "entry", entry.ID, "type", entry.Type)
	return entry, nil
}

func (s *IngestService) storeImage(ctx context.Context, entryID, url string) (StoredImage, error) {
	for _, prefix := range s.hosted {
		if prefix != "" && strings.HasPrefix(url, prefix) {
			return StoredImage{ImageURL: url, ThumbnailURL: url}, nil
		}
	}

	data, err := s.download(ctx, url)
	if err != nil {
		return StoredImage{}, err
	}
	return s.images.Process(ctx, entryID, data)
}

func (s *IngestService) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDownload, err)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %s returned %d", ErrImageDownload, url, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, 20<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageDownload, err)
	}
	return data, nil
}
