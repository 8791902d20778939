package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/communitycontent/internal/config"
	"github.com/communitycontent/internal/content"
	"github.com/communitycontent/internal/logging"
	"github.com/communitycontent/internal/service"
)

func main() {
	cfg := config.Load()

	var path, entryID, action, sessionID string
	flag.StringVar(&path, "file", cfg.EntriesPath, "entries document to update")
	flag.StringVar(&entryID, "entry", os.Getenv("ENTRY_ID"), "entry id (ENTRY_ID)")
	flag.StringVar(&action, "action", os.Getenv("ACTION"), "add or remove (ACTION)")
	flag.StringVar(&sessionID, "session", os.Getenv("SESSION_ID"), "visitor session id (SESSION_ID)")
	flag.Parse()

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	entryID = strings.TrimSpace(entryID)
	if entryID == "" || strings.TrimSpace(action) == "" || strings.TrimSpace(sessionID) == "" {
		fmt.Fprintln(os.Stderr, "missing parameters: ENTRY_ID, ACTION and SESSION_ID are required")
		os.Exit(1)
	}

	svc := service.NewLikeService(content.NewFileStore(path), logger)
	result, err := svc.Like(context.Background(), service.LikeRequest{EntryID: entryID, SessionID: sessionID, Action: action})
	if err != nil {
		fmt.Fprintf(os.Stderr, "update likes for %s: %v\n", entryID, err)
		_ = logger.Sync()
		os.Exit(1)
	}

	if !result.Changed {
		fmt.Printf("unchanged: %s already has %d likes\n", entryID, result.Entry.Likes)
		return
	}
	fmt.Printf("done: %s now has %d likes\n", entryID, result.Entry.Likes)
}
