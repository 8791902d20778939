package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/communitycontent/internal/config"
	"github.com/communitycontent/internal/content"
	"github.com/communitycontent/internal/logging"
	"github.com/communitycontent/internal/service"
)

func main() {
	cfg := config.Load()

	var path string
	var maxEntries int
	flag.StringVar(&path, "file", cfg.EntriesPath, "entries document to repair")
	flag.IntVar(&maxEntries, "max", cfg.MaxEntries, "number of entries to keep")
	flag.Parse()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	store := content.NewFileStore(path)
	if _, err := os.Stat(store.Path()); err != nil {
		fmt.Fprintf(os.Stderr, "entries document not found: %v\n", err)
		os.Exit(1)
	}

	var report service.RepairReport
	err = content.Update(context.Background(), store, "Repair entries", time.Now, func(doc *content.Document) error {
		var entries []content.Entry
		entries, report = service.RepairEntries(doc.Entries)
		if len(entries) > maxEntries {
			logger.Infow("capping entries", "found", len(entries), "kept", maxEntries)
		}
		doc.Entries = content.Retain(entries, maxEntries)
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "repair %s: %v\n", store.Path(), err)
		_ = logger.Sync()
		os.Exit(1)
	}

	fmt.Printf("done: %d contents recovered, %d inline images removed\n", report.ContentRecovered, report.ImagesStripped)
}
