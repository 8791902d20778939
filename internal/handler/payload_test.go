package handler

import (
	"encoding/json"
	"testing"
)

func TestFlexStringAcceptsNumbersAndStrings(t *testing.T) {
	var payload struct {
		A flexString `json:"a"`
		B flexString `json:"b"`
		C flexString `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": 42, "b": " 17 ", "c": null}`), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if n, ok := payload.A.Int(); !ok || n != 42 {
		t.Fatalf("expected 42, got %d %v", n, ok)
	}
	if n, ok := payload.B.Int(); !ok || n != 17 {
		t.Fatalf("expected 17, got %d %v", n, ok)
	}
	if _, ok := payload.C.Int(); ok {
		t.Fatalf("expected null to be rejected")
	}
	if _, ok := flexString("-3").Int(); ok {
		t.Fatalf("expected negative number to be rejected")
	}
}

func TestFlexModeration(t *testing.T) {
	var payload struct {
		A flexModeration `json:"a"`
		B flexModeration `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a": "pending", "b": {"status": "approved", "moderatedAt": null}}`), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.A != "pending" || payload.B != "approved" {
		t.Fatalf("unexpected values %q %q", payload.A, payload.B)
	}
}

func TestLikePayloadEntryID(t *testing.T) {
	if id := (likePayload{IssueNumber: "12"}).entryID(); id != "issue-12" {
		t.Fatalf("expected issue-12, got %q", id)
	}
	if id := (likePayload{EntryID: " contrib-1 ", IssueNumber: "12"}).entryID(); id != "contrib-1" {
		t.Fatalf("expected explicit entry id, got %q", id)
	}
	if id := (likePayload{}).entryID(); id != "" {
		t.Fatalf("expected empty id, got %q", id)
	}
}
