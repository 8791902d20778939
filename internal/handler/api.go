package handler

import (
	"strings"

	"github.com/communitycontent/internal/logging"
	"github.com/communitycontent/internal/service"
	"go.uber.org/zap"
)

// API bundles shared dependencies for HTTP handlers.
type API struct {
	contributions    *service.ContributionService
	moderation       *service.ModerationService
	likes            *service.LikeService
	directDelete     bool
	moderatorKeyHash []byte
	logger           *zap.SugaredLogger
}

// Options wires the services behind the handlers. Likes may be nil when
// no published document is configured.
type Options struct {
	Contributions    *service.ContributionService
	Moderation       *service.ModerationService
	Likes            *service.LikeService
	DirectDelete     bool
	ModeratorKeyHash string
	Logger           *zap.SugaredLogger
}

// NewAPI constructs a handler set with shared services.
func NewAPI(opts Options) *API {
	var hash []byte
	if trimmed := strings.TrimSpace(opts.ModeratorKeyHash); trimmed != "" {
		hash = []byte(trimmed)
	}
	return &API{
		contributions:    opts.Contributions,
		moderation:       opts.Moderation,
		likes:            opts.Likes,
		directDelete:     opts.DirectDelete,
		moderatorKeyHash: hash,
		logger:           logging.OrNop(opts.Logger),
	}
}
