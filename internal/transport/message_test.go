package transport

import (
	"errors"
	"strings"
	"testing"
)

func TestWithRunIDRoundTrip(t *testing.T) {
	msg := WithRunID("sop-1234", "Planning complete: 11 sections")
	id, err := ExtractRunID(msg)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if id != "sop-1234" {
		t.Fatalf("expected sop-1234, got %q", id)
	}
	if !strings.Contains(msg.Text(), "Planning complete") {
		t.Fatalf("summary lost: %q", msg.Text())
	}
}

func TestExtractWithoutSummary(t *testing.T) {
	id, err := ExtractRunID(WithRunID("sop-solo", ""))
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if id != "sop-solo" {
		t.Fatalf("expected sop-solo, got %q", id)
	}
}

func TestExtractStopsAtWhitespace(t *testing.T) {
	msg := NewText("please continue run_id::sop-77\nthanks")
	id, err := ExtractRunID(msg)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if id != "sop-77" {
		t.Fatalf("expected sop-77, got %q", id)
	}
}

func TestExtractPrefersMostRecentFragment(t *testing.T) {
	msg := NewText("run_id::sop-old | first pass")
	msg = msg.Append("assistant", "run_id::sop-new | second pass")
	id, err := ExtractRunID(msg)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if id != "sop-new" {
		t.Fatalf("expected the most recent id, got %q", id)
	}
}

func TestExtractSearchesNestedParts(t *testing.T) {
	msg := Message{Fragments: []Fragment{{
		Role: "assistant",
		Parts: []Fragment{
			{Text: "status update"},
			{Text: "run_id::sop-nested | formatting done"},
		},
	}}}
	id, err := ExtractRunID(msg)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if id != "sop-nested" {
		t.Fatalf("expected sop-nested, got %q", id)
	}
}

func TestExtractMissingMarker(t *testing.T) {
	_, err := ExtractRunID(NewText("no correlation here"))
	if !errors.Is(err, ErrRunIDMissing) {
		t.Fatalf("expected ErrRunIDMissing, got %v", err)
	}
	// A bare marker with no id behind it is just as unusable.
	_, err = ExtractRunID(NewText("run_id:: | note"))
	if !errors.Is(err, ErrRunIDMissing) {
		t.Fatalf("expected ErrRunIDMissing for empty id, got %v", err)
	}
}
