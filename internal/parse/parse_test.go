package parse

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestObjectFromTaggedFence(t *testing.T) {
	text := "Here is the outline you asked for:\n```json\n{\"title\": \"Spill Response\"}\n```\nLet me know!"
	got, err := Object(text)
	if err != nil {
		t.Fatalf("object: %v", err)
	}
	if got["title"] != "Spill Response" {
		t.Fatalf("unexpected result: %v", got)
	}
}

func TestObjectFromUntaggedFence(t *testing.T) {
	text := "```\njson\n{\"score\": 8.5}\n```"
	got, err := Object(text)
	if err != nil {
		t.Fatalf("object: %v", err)
	}
	if got["score"] != 8.5 {
		t.Fatalf("unexpected result: %v", got)
	}
}

func TestObjectFromRawTextWithProse(t *testing.T) {
	text := "Sure! The result is {\"approved\": false, \"issues\": [\"too short\"]} as requested."
	got, err := Object(text)
	if err != nil {
		t.Fatalf("object: %v", err)
	}
	if got["approved"] != false {
		t.Fatalf("unexpected result: %v", got)
	}
}

func TestObjectRepairsTrailingComma(t *testing.T) {
	got, err := Object(`{"a": 1,}`)
	if err != nil {
		t.Fatalf("object: %v", err)
	}
	if got["a"] != float64(1) {
		t.Fatalf("expected a=1, got %v", got)
	}
	nested, err := Object(`{"issues": ["one", "two",], "score": 7.0,}`)
	if err != nil {
		t.Fatalf("nested: %v", err)
	}
	if !reflect.DeepEqual(nested["issues"], []any{"one", "two"}) {
		t.Fatalf("unexpected issues: %v", nested["issues"])
	}
}

func TestObjectRepairsEmbeddedNewline(t *testing.T) {
	raw := "{\"feedback\": \"line one\nline two\"}"
	got, err := Object(raw)
	if err != nil {
		t.Fatalf("object: %v", err)
	}
	if got["feedback"] != "line one\nline two" {
		t.Fatalf("newline not preserved: %q", got["feedback"])
	}
}

func TestObjectHandlesBracesInsideStrings(t *testing.T) {
	got, err := Object(`{"content": "use {placeholders} like this", "n": 2}`)
	if err != nil {
		t.Fatalf("object: %v", err)
	}
	if got["n"] != float64(2) {
		t.Fatalf("unexpected result: %v", got)
	}
}

func TestObjectIsIdempotent(t *testing.T) {
	raw := "```json\n{\"a\": \"x\ny\", \"b\": [1, 2,],}\n```"
	first, err := Object(raw)
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	second, err := Object(raw)
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("parse is not idempotent: %v vs %v", first, second)
	}
}

func TestObjectFailureCarriesOriginalText(t *testing.T) {
	raw := "no structured data here at all"
	_, err := Object(raw)
	var merr *MalformedResponseError
	if !errors.As(err, &merr) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
	if merr.Raw != raw {
		t.Fatalf("original text not preserved: %q", merr.Raw)
	}

	broken := `{"a": [1, 2}`
	_, err = Object(broken)
	if !errors.As(err, &merr) {
		t.Fatalf("expected MalformedResponseError, got %v", err)
	}
	if !strings.Contains(merr.Raw, broken) {
		t.Fatalf("original text not preserved: %q", merr.Raw)
	}
}
