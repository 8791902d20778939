package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	ErrEntryNotFound = errors.New("entry not found")
	ErrConflict      = errors.New("document changed since it was read")
)

// Document is the JSON file the static site fetches.
type Document struct {
	LastUpdated string  `json:"lastUpdated"`
	Entries     []Entry `json:"entries"`
}

// NewDocument returns an empty document stamped with now.
func NewDocument(now time.Time) *Document {
	return &Document{LastUpdated: FormatTime(now), Entries: []Entry{}}
}

// Decode parses a document. An empty input yields an empty document.
func Decode(data []byte) (*Document, error) {
	doc := &Document{}
	if len(bytes.TrimSpace(data)) == 0 {
		doc.Entries = []Entry{}
		return doc, nil
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	if doc.Entries == nil {
		doc.Entries = []Entry{}
	}
	for i := range doc.Entries {
		normalizeLikes(&doc.Entries[i])
	}
	return doc, nil
}

// Encode renders the document pretty-printed with two-space indentation.
func Encode(doc *Document) ([]byte, error) {
	out := *doc
	if out.Entries == nil {
		out.Entries = []Entry{}
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return append(data, '\n'), nil
}

// Touch refreshes lastUpdated.
func (d *Document) Touch(now time.Time) {
	d.LastUpdated = FormatTime(now)
}

// Find returns the index of the entry with id, or -1.
func (d *Document) Find(id string) int {
	return FindEntry(d.Entries, id)
}

// FindEntry returns the index of the entry with id, or -1.
func FindEntry(entries []Entry, id string) int {
	return slices.IndexFunc(entries, func(e Entry) bool { return e.ID == id })
}

// Upsert replaces the entry with the same id or prepends e.
func (d *Document) Upsert(e Entry) (created bool) {
	if idx := d.Find(e.ID); idx >= 0 {
		d.Entries[idx] = e
		return false
	}
	d.Entries = append([]Entry{e}, d.Entries...)
	return true
}

// Retain keeps at most max entries, the most recent by timestamp first.
// The input slice is not modified.
func Retain(entries []Entry, max int) []Entry {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b Entry) int {
		return b.SortTime().Compare(a.SortTime())
	})
	if max > 0 && len(out) > max {
		out = out[:max]
	}
	return out
}

// CloneEntries deep-copies a slice of entries.
func CloneEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	for i, e := range entries {
		out[i] = e.Clone()
	}
	return out
}

func normalizeLikes(e *Entry) {
	if e.LikedBy == nil {
		e.LikedBy = []string{}
	}
	if e.Likes < 0 {
		e.Likes = 0
	}
}
