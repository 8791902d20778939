package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/communitycontent/internal/config"
	"github.com/communitycontent/internal/db"
	"github.com/communitycontent/internal/github"
	"github.com/communitycontent/internal/handler"
	"github.com/communitycontent/internal/logging"
	"github.com/communitycontent/internal/router"
	"github.com/communitycontent/internal/service"
	"github.com/communitycontent/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	if err := cfg.RequireToken(); err != nil {
		logger.Fatalw("missing GitHub credentials", "error", err)
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.Init(cfg.LedgerPath); err != nil {
		logger.Fatalw("failed to initialize ledger database", "path", cfg.LedgerPath, "error", err)
	}
	defer db.Close()
	ledger := service.NewLedgerService(db.DB)

	issues := github.NewClient(cfg.Token, cfg.RepoOwner, cfg.RepoName)
	issues.SetBaseURL(cfg.APIBaseURL)
	published := github.NewContentsStore(issues.ForRepository(cfg.PublishOwner, cfg.PublishRepo), cfg.PublishPath, cfg.PublishBranch)

	var cache service.SubmissionCache
	if cfg.Redis.Addr != "" {
		client, err := service.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warnw("submission cache disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			defer client.Close()
			cache = service.NewRedisSubmissionCache(client, cfg.SubmissionTTL)
		}
	}

	api := handler.NewAPI(handler.Options{
		Contributions: service.NewContributionService(issues, service.ContributionOptions{
			Store:        published,
			Cache:        cache,
			MaxEntries:   cfg.MaxEntries,
			DirectDeploy: cfg.DirectDeployEnabled,
			Logger:       logger,
		}),
		Moderation:       service.NewModerationService(issues, published, ledger, logger),
		Likes:            service.NewLikeService(published, logger),
		DirectDelete:     cfg.DirectDeployEnabled,
		ModeratorKeyHash: cfg.ModeratorKeyHash,
		Logger:           logger,
	})

	if cfg.ReconcileSchedule != "" {
		scheduler, err := startReconciler(ctx, cfg, issues, published, ledger, logger)
		if err != nil {
			logger.Fatalw("failed to schedule reconciliation", "schedule", cfg.ReconcileSchedule, "error", err)
		}
		defer scheduler.Stop()
	}

	r := router.SetupRouter(router.Settings{
		SessionSecret: cfg.SessionSecret,
		AllowedOrigin: cfg.AllowedOrigin,
	}, api, logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infow("server starting",
			"addr", cfg.ListenAddr,
			"issues", issues.Repository(),
			"published", published.Location(),
			"direct_deploy", cfg.DirectDeployEnabled,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalw("failed to run server", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Infow("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Errorw("server forced to shutdown", "error", err)
	}
}

// startReconciler runs the reconciler against the published document on
// the configured cron schedule. Overlapping runs are skipped.
func startReconciler(ctx context.Context, cfg config.AppConfig, issues *github.Client, store *github.ContentsStore, ledger *service.LedgerService, logger *zap.SugaredLogger) (*cron.Cron, error) {
	images, err := storage.NewImageStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	reconciler := service.NewReconciler(
		service.NewIssueParser(cfg.HostedImagePrefixes),
		service.NewImageProcessor(images),
		ledger,
		cfg.MaxEntries,
		logger,
	)
	svc := service.NewReconcileService(issues, store, reconciler, cfg.IssueLabel, logger)

	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(cfg.ReconcileSchedule, func() {
		if _, err := svc.Run(ctx); err != nil {
			if errors.Is(err, service.ErrReconcileRunning) {
				logger.Infow("reconciliation skipped, previous run still active")
				return
			}
			logger.Errorw("reconciliation failed", "error", err)
		}
	}); err != nil {
		return nil, err
	}
	c.Start()
	logger.Infow("reconciliation scheduled", "schedule", cfg.ReconcileSchedule)
	return c, nil
}
