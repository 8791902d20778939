package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/communitycontent/internal/config"
	"github.com/communitycontent/internal/content"
)

// Fills an entries document with sample contributions for local front-end work.
func main() {
	cfg := config.Load()

	var path string
	var replace bool
	flag.StringVar(&path, "file", cfg.EntriesPath, "entries document to seed")
	flag.BoolVar(&replace, "replace", false, "drop existing entries before seeding")
	flag.Parse()

	now := time.Now
	err := content.Update(context.Background(), content.NewFileStore(path), "Seed test entries", now, func(doc *content.Document) error {
		if !replace && len(doc.Entries) > 0 {
			return fmt.Errorf("%s already holds %d entries, use -replace to overwrite", path, len(doc.Entries))
		}
		doc.Entries = content.Retain(createTestEntries(now()), cfg.MaxEntries)
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed test data: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("done: test entries written to %s\n", path)
}

type seed struct {
	kind        string
	name        string
	text        string
	image       string
	locationID  string
	eventID     string
	likedBy     []string
	status      string
	issueBacked bool
}

var seeds = []seed{
	{kind: content.TypeTestimonial, name: "Camille", text: "Une journée magnifique au bord du lac, merci aux bénévoles !", locationID: "lac", likedBy: []string{"visitor-a", "visitor-b"}, issueBacked: true},
	{kind: content.TypePhoto, name: "Julien", text: "Coucher de soleil depuis la scène principale", image: "https://images.example.org/sunset.jpg", eventID: "concert-ete", likedBy: []string{"visitor-a"}, issueBacked: true},
	{kind: content.TypeTestimonial, name: content.DefaultDisplayName, text: "Première visite et certainement pas la dernière.", eventID: "portes-ouvertes"},
	{kind: content.TypePhoto, name: "Inès", text: "Le marché du samedi matin", image: "https://images.example.org/marche.jpg", locationID: "place-centrale", likedBy: []string{"visitor-c", "visitor-d", "visitor-e"}},
	{kind: content.TypeTestimonial, name: "Marc", text: "Message retiré par la modération.", status: content.StatusRejected, issueBacked: true},
	{kind: content.TypePhoto, name: "Sophie", text: "Atelier peinture avec les enfants", image: "https://images.example.org/atelier.jpg", status: content.StatusPending},
}

// createTestEntries builds one entry per seed, an hour apart and newest first.
func createTestEntries(now time.Time) []content.Entry {
	entries := make([]content.Entry, 0, len(seeds))
	for i, s := range seeds {
		at := now.Add(-time.Duration(i) * time.Hour)
		id := content.NewLocalID(at)
		if s.issueBacked {
			id = content.IssueEntryID(100 + i)
		}

		status := s.status
		if status == "" {
			status = content.StatusApproved
		}
		e := content.Entry{
			ID:          id,
			Type:        s.kind,
			DisplayName: s.name,
			LocationID:  s.locationID,
			EventID:     s.eventID,
			Timestamp:   content.FormatTime(at),
			CreatedAt:   content.FormatTime(at),
			Likes:       len(s.likedBy),
			LikedBy:     append([]string{}, s.likedBy...),
			Moderation:  content.ModeratedNow(status, at),
		}
		if s.kind == content.TypePhoto {
			e.Description = s.text
			e.ImageURL = s.image
			e.ThumbnailURL = s.image
		} else {
			e.Content = s.text
		}
		entries = append(entries, e)
	}
	return entries
}
