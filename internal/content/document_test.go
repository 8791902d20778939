package content

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func entryAt(id string, at time.Time) Entry {
	return Entry{ID: id, Type: TypePhoto, DisplayName: "Anonyme", Timestamp: FormatTime(at), LikedBy: []string{}}
}

func TestRetainKeepsMostRecent(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	var entries []Entry
	// interleave old and new so the input is not already sorted
	for i := 0; i < 12; i++ {
		offset := time.Duration((i*7)%12) * time.Hour
		entries = append(entries, entryAt(fmt.Sprintf("contrib-%d", i), base.Add(offset)))
	}

	kept := Retain(entries, 5)
	if len(kept) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(kept))
	}

	keptIDs := map[string]bool{}
	oldestKept := kept[0].SortTime()
	for i, e := range kept {
		keptIDs[e.ID] = true
		if i > 0 && e.SortTime().After(kept[i-1].SortTime()) {
			t.Fatalf("entries not sorted most recent first at %d", i)
		}
		if e.SortTime().Before(oldestKept) {
			oldestKept = e.SortTime()
		}
	}
	for _, e := range entries {
		if keptIDs[e.ID] {
			continue
		}
		if e.SortTime().After(oldestKept) {
			t.Fatalf("dropped %s is newer than a retained entry", e.ID)
		}
	}
	if len(entries) != 12 {
		t.Fatalf("input slice must not be modified")
	}
}

func TestRetainUnderCapKeepsEverything(t *testing.T) {
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	entries := []Entry{entryAt("a", base), entryAt("b", base.Add(time.Hour))}
	kept := Retain(entries, 100)
	if len(kept) != 2 || kept[0].ID != "b" {
		t.Fatalf("unexpected result %v", kept)
	}
}

func TestDecodeNormalizesLikes(t *testing.T) {
	doc, err := Decode([]byte(`{"lastUpdated":"2024-01-01T00:00:00.000Z","entries":[{"id":"x","type":"photo","displayName":"A","timestamp":"2024-01-01T00:00:00Z","likes":-3}]}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	e := doc.Entries[0]
	if e.Likes != 0 {
		t.Fatalf("expected likes floored at 0, got %d", e.Likes)
	}
	if e.LikedBy == nil {
		t.Fatalf("expected likedBy to be an empty list")
	}
}

func TestDecodeEmpty(t *testing.T) {
	doc, err := Decode([]byte("  \n"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if doc.Entries == nil || len(doc.Entries) != 0 {
		t.Fatalf("expected empty entries")
	}
	if _, err := Decode([]byte("{not json")); err == nil {
		t.Fatalf("expected error for malformed document")
	}
}

func TestEncodeIsIndented(t *testing.T) {
	doc := NewDocument(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC))
	doc.Upsert(entryAt("issue-1", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)))

	data, err := Encode(doc)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	text := string(data)
	if !strings.Contains(text, "\n  \"entries\": [") {
		t.Fatalf("expected two-space indentation, got %s", text)
	}
	if !strings.Contains(text, `"likedBy": []`) {
		t.Fatalf("expected empty likedBy to be written, got %s", text)
	}
	if !strings.Contains(text, `"moderatedAt": null`) {
		t.Fatalf("expected null moderatedAt, got %s", text)
	}
	if !strings.HasSuffix(text, "}\n") {
		t.Fatalf("expected trailing newline")
	}
	if !strings.Contains(text, `"lastUpdated": "2024-01-02T03:04:05.000Z"`) {
		t.Fatalf("unexpected lastUpdated in %s", text)
	}
}

func TestUpsertReplacesOrPrepends(t *testing.T) {
	doc := NewDocument(time.Now())
	doc.Upsert(Entry{ID: "a"})
	if created := doc.Upsert(Entry{ID: "b"}); !created {
		t.Fatalf("expected b to be created")
	}
	if created := doc.Upsert(Entry{ID: "a", DisplayName: "Alice"}); created {
		t.Fatalf("expected a to be replaced")
	}
	if len(doc.Entries) != 2 || doc.Entries[0].ID != "b" || doc.Entries[1].DisplayName != "Alice" {
		t.Fatalf("unexpected entries %v", doc.Entries)
	}
}

func TestIssueNumber(t *testing.T) {
	cases := map[string]int{"issue-12": 12, "issue-0": 0, "contrib-1-abc": 0, "issue-x": 0}
	for id, want := range cases {
		got, ok := IssueNumber(id)
		if want == 0 && ok {
			t.Fatalf("%s: expected no issue number", id)
		}
		if want != 0 && (!ok || got != want) {
			t.Fatalf("%s: expected %d, got %d", id, want, got)
		}
	}
	if IssueEntryID(7) != "issue-7" {
		t.Fatalf("unexpected issue entry id")
	}
}

func TestNewContributionID(t *testing.T) {
	now := time.UnixMilli(1700000000123)
	id := NewContributionID(now)
	if !strings.HasPrefix(id, "contrib-1700000000123-") || len(id) != len("contrib-1700000000123-")+9 {
		t.Fatalf("unexpected id %q", id)
	}
	if NewLocalID(now) != "local-1700000000123" {
		t.Fatalf("unexpected local id")
	}
}
