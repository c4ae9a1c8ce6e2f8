package runstate

import (
	"errors"
	"testing"
	"time"
)

func TestAppendErrorKeepsOrder(t *testing.T) {
	state := New("sop-1", Inputs{Topic: "Lockout Tagout", Industry: "Manufacturing"}, time.Now())
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	state.AppendError(base, "first")
	state.AppendError(base.Add(time.Minute), "second")
	if len(state.Errors) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(state.Errors))
	}
	if state.Errors[0].Message != "first" || state.Errors[1].Message != "second" {
		t.Fatalf("error log out of order: %+v", state.Errors)
	}
	rendered := state.ErrorStrings()
	if rendered[0] != "[2026-03-01T10:00:00Z] first" {
		t.Fatalf("unexpected rendering: %q", rendered[0])
	}
}

func TestAddUsageIsMonotonic(t *testing.T) {
	state := New("sop-1", Inputs{}, time.Now())
	state.AddUsage(1500)
	state.AddUsage(-300)
	state.AddUsage(2500)
	if state.UsageUnits != 4000 {
		t.Fatalf("expected 4000 usage units, got %d", state.UsageUnits)
	}
}

func TestOutlineFromMapValidates(t *testing.T) {
	outline, err := OutlineFromMap(map[string]any{
		"title":    "Chemical Spill Response SOP",
		"industry": "Manufacturing",
		"sections": []any{
			map[string]any{"number": "1", "title": "Purpose and Scope", "subsections": []any{"1.1 Purpose"}},
			map[string]any{"title": "Safety Requirements"},
		},
		"estimated_pages": float64(8),
	})
	if err != nil {
		t.Fatalf("outline: %v", err)
	}
	if outline.EstimatedPages != 8 {
		t.Fatalf("expected 8 pages, got %d", outline.EstimatedPages)
	}
	if outline.Sections[1].Number != "2" {
		t.Fatalf("expected fallback numbering, got %q", outline.Sections[1].Number)
	}
	titles := outline.SectionTitles()
	if titles[0] != "Purpose and Scope" || titles[1] != "Safety Requirements" {
		t.Fatalf("unexpected titles: %v", titles)
	}
}

func TestOutlineFromMapRejectsMissingSections(t *testing.T) {
	_, err := OutlineFromMap(map[string]any{"title": "Doc", "sections": []any{}})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestReviewApprovalBoundary(t *testing.T) {
	approved, err := ReviewFromMap(map[string]any{"score": 8.0, "feedback": "solid"})
	if err != nil {
		t.Fatalf("review 8.0: %v", err)
	}
	if !approved.Approved {
		t.Fatalf("score 8.0 must be approved")
	}
	rejected, err := ReviewFromMap(map[string]any{"score": 7.99, "feedback": "close"})
	if err != nil {
		t.Fatalf("review 7.99: %v", err)
	}
	if rejected.Approved {
		t.Fatalf("score 7.99 must not be approved")
	}
}

func TestReviewApprovalIgnoresCollaboratorFlag(t *testing.T) {
	// The collaborator claims approval but the score says otherwise.
	result, err := ReviewFromMap(map[string]any{"score": 5.0, "approved": true})
	if err != nil {
		t.Fatalf("review: %v", err)
	}
	if result.Approved {
		t.Fatalf("approval must be derived from the score, not the response flag")
	}
}

func TestReviewRejectsOutOfRangeScore(t *testing.T) {
	for _, score := range []float64{-0.5, 10.5} {
		_, err := ReviewFromMap(map[string]any{"score": score})
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Fatalf("score %.1f: expected ValidationError, got %v", score, err)
		}
	}
	_, err := ReviewFromMap(map[string]any{"score": 9.0, "clarity_score": 11.0})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected sub-score ValidationError, got %v", err)
	}
}
