package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/communitycontent/internal/config"
	"github.com/communitycontent/internal/content"
	"github.com/communitycontent/internal/logging"
	"github.com/communitycontent/internal/service"
	"github.com/communitycontent/internal/storage"
)

func main() {
	cfg := config.Load()

	var path string
	flag.StringVar(&path, "file", cfg.EntriesPath, "entries document to update")
	flag.Parse()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	input := service.IngestInput{
		ID:          os.Getenv("CONTRIBUTION_ID"),
		Type:        os.Getenv("CONTRIBUTION_TYPE"),
		ImageURL:    os.Getenv("IMAGE_URL"),
		DisplayName: os.Getenv("DISPLAY_NAME"),
		EventID:     os.Getenv("EVENT_ID"),
		LocationID:  os.Getenv("LOCATION_ID"),
		Content:     os.Getenv("CONTENT"),
		Timestamp:   os.Getenv("TIMESTAMP"),
	}

	ctx := context.Background()
	images, err := storage.NewImageStore(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init image store: %v\n", err)
		_ = logger.Sync()
		os.Exit(1)
	}

	svc := service.NewIngestService(service.NewImageProcessor(images), cfg.HostedImagePrefixes, cfg.MaxEntries, logger)
	entry, err := svc.Ingest(ctx, content.NewFileStore(path), input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "process contribution %s: %v\n", input.ID, err)
		_ = logger.Sync()
		os.Exit(1)
	}
	fmt.Printf("done: %s added to %s\n", entry, path)
}
