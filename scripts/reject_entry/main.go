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
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	var path, entryID, reason string
	var closeIssue bool
	flag.StringVar(&path, "file", cfg.EntriesPath, "entries document to update")
	flag.StringVar(&entryID, "entry", os.Getenv("ENTRY_ID"), "entry id to reject (ENTRY_ID)")
	flag.StringVar(&reason, "reason", os.Getenv("REASON"), "rejection reason (REASON)")
	flag.BoolVar(&closeIssue, "close-issue", true, "close the source issue of issue-N entries")
	flag.Parse()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	if err := run(context.Background(), cfg, path, entryID, reason, closeIssue, logger); err != nil {
		fmt.Fprintf(os.Stderr, "reject %s: %v\n", entryID, err)
		_ = logger.Sync()
		os.Exit(1)
	}
	_ = logger.Sync()
}

func run(ctx context.Context, cfg config.AppConfig, path, entryID, reason string, closeIssue bool, logger *zap.SugaredLogger) error {
	if err := db.Init(cfg.LedgerPath); err != nil {
		return fmt.Errorf("init ledger: %w", err)
	}
	defer db.Close()

	var closer service.IssueCloser
	if closeIssue {
		if err := cfg.RequireToken(); err != nil {
			return err
		}
		client := github.NewClient(cfg.Token, cfg.RepoOwner, cfg.RepoName)
		client.SetBaseURL(cfg.APIBaseURL)
		closer = client
	}

	svc := service.NewModerationService(closer, content.NewFileStore(path), service.NewLedgerService(db.DB), logger)
	result, err := svc.RejectEntry(ctx, service.RejectRequest{
		EntryID: entryID,
		Reason:  reason,
		Source:  service.SourceScript,
		Publish: true,
	})
	if err != nil {
		return err
	}

	fmt.Printf("done: %s rejected (method %s, issue closed: %t)\n", result.EntryID, result.Method, result.IssueClosed)
	return nil
}
