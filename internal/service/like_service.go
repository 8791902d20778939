package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/communitycontent/internal/content"
	"github.com/communitycontent/internal/logging"
	"github.com/communitycontent/internal/metrics"
	"go.uber.org/zap"
)

var (
	ErrLikeActionInvalid = errors.New("like action is invalid")
	ErrSessionRequired   = errors.New("session id is required")
)

const (
	LikeAdd    = "add"
	LikeRemove = "remove"
)

// NormalizeLikeAction accepts add/remove and the like/unlike aliases.
func NormalizeLikeAction(action string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(action)) {
	case LikeAdd, "like":
		return LikeAdd, nil
	case LikeRemove, "unlike":
		return LikeRemove, nil
	default:
		return "", ErrLikeActionInvalid
	}
}

// ApplyLike adds or removes sessionID from the likers of entry id. The
// input is not modified. Adding an existing like or removing a missing one
// leaves the entry as it was and reports changed=false. likes always
// equals len(likedBy) on the touched entry.
func ApplyLike(entries []content.Entry, id, sessionID, action string) ([]content.Entry, bool, error) {
	action, err := NormalizeLikeAction(action)
	if err != nil {
		return nil, false, err
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return nil, false, ErrSessionRequired
	}

	idx := content.FindEntry(entries, id)
	if idx < 0 {
		return nil, false, content.ErrEntryNotFound
	}

	out := content.CloneEntries(entries)
	entry := &out[idx]
	if entry.LikedBy == nil {
		entry.LikedBy = []string{}
	}

	liked := slices.Contains(entry.LikedBy, sessionID)
	switch {
	case action == LikeAdd && !liked:
		entry.LikedBy = append(entry.LikedBy, sessionID)
	case action == LikeRemove && liked:
		entry.LikedBy = slices.DeleteFunc(entry.LikedBy, func(s string) bool { return s == sessionID })
	default:
		return out, false, nil
	}
	entry.Likes = len(entry.LikedBy)
	return out, true, nil
}

// LikeRequest identifies a like mutation.
type LikeRequest struct {
	EntryID   string
	SessionID string
	Action    string
}

// LikeResult is the entry after the mutation.
type LikeResult struct {
	Entry   content.Entry
	Changed bool
}

// LikeService applies likes to a stored document with compare-and-swap.
type LikeService struct {
	store  content.Store
	logger *zap.SugaredLogger
	now    func() time.Time
}

// NewLikeService creates a LikeService instance.
func NewLikeService(store content.Store, logger *zap.SugaredLogger) *LikeService {
	return &LikeService{store: store, logger: logging.OrNop(logger), now: time.Now}
}

// Like loads the document, applies the like and writes it back unless
// nothing changed. A concurrent write surfaces as content.ErrConflict.
func (s *LikeService) Like(ctx context.Context, req LikeRequest) (LikeResult, error) {
	action, err := NormalizeLikeAction(req.Action)
	if err != nil {
		return LikeResult{}, err
	}

	doc, rev, err := s.store.Load(ctx)
	if err != nil {
		return LikeResult{}, fmt.Errorf("load document: %w", err)
	}

	entries, changed, err := ApplyLike(doc.Entries, req.EntryID, req.SessionID, action)
	if err != nil {
		metrics.LikesTotal.WithLabelValues(action, "error").Inc()
		return LikeResult{}, err
	}
	result := LikeResult{Entry: entries[content.FindEntry(entries, req.EntryID)], Changed: changed}
	if !changed {
		metrics.LikesTotal.WithLabelValues(action, "unchanged").Inc()
		s.logger.Debugw("like unchanged", "entry", req.EntryID, "action", action)
		return result, nil
	}

	doc.Entries = entries
	doc.Touch(s.now())
	message := fmt.Sprintf("Update likes for %s (%s)", req.EntryID, action)
	if err := s.store.Save(ctx, doc, rev, message); err != nil {
		metrics.LikesTotal.WithLabelValues(action, "error").Inc()
		return LikeResult{}, fmt.Errorf("save document: %w", err)
	}

	metrics.LikesTotal.WithLabelValues(action, "ok").Inc()
	s.logger.Infow("like applied", "entry", req.EntryID, "action", action, "likes", result.Entry.Likes)
	return result, nil
}
