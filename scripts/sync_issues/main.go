package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/communitycontent/internal/config"
	"github.com/communitycontent/internal/content"
	"github.com/communitycontent/internal/db"
	"github.com/communitycontent/internal/github"
	"github.com/communitycontent/internal/logging"
	"github.com/communitycontent/internal/service"
	"github.com/communitycontent/internal/storage"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	var path, label string
	var published bool
	flag.StringVar(&path, "file", cfg.EntriesPath, "entries document to update")
	flag.StringVar(&label, "label", cfg.IssueLabel, "only reconcile issues carrying this label")
	flag.BoolVar(&published, "published", false, "update the published document through the contents API instead of -file")
	flag.Parse()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(context.Background(), cfg, path, label, published, logger); err != nil {
		logger.Errorw("synchronisation failed", "error", err)
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run(ctx context.Context, cfg config.AppConfig, path, label string, published bool, logger *zap.SugaredLogger) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.RequireToken(); err != nil {
		return err
	}

	if err := db.Init(cfg.LedgerPath); err != nil {
		return fmt.Errorf("init ledger: %w", err)
	}
	defer db.Close()

	images, err := storage.NewImageStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init image store: %w", err)
	}

	client := github.NewClient(cfg.Token, cfg.RepoOwner, cfg.RepoName)
	client.SetBaseURL(cfg.APIBaseURL)

	local := content.NewFileStore(path)
	var store content.Store = local
	target := local.Path()
	if published {
		contents := github.NewContentsStore(client.ForRepository(cfg.PublishOwner, cfg.PublishRepo), cfg.PublishPath, cfg.PublishBranch)
		store, target = contents, contents.Location()
	}

	reconciler := service.NewReconciler(
		service.NewIssueParser(cfg.HostedImagePrefixes),
		service.NewImageProcessor(images),
		service.NewLedgerService(db.DB),
		cfg.MaxEntries,
		logger,
	)
	svc := service.NewReconcileService(client, store, reconciler, label, logger)

	logger.Infow("synchronising issues", "repository", client.Repository(), "target", target)
	result, err := svc.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("done: %d entries (%d added, %d rejected, %d skipped, %d expired, %d dropped)\n",
		len(result.Entries), result.Added, result.Rejected, result.Skipped, result.Expired, result.Dropped)
	return nil
}
