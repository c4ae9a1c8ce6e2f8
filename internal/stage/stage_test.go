package stage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sopforge/sopforge/internal/runstate"
	"github.com/sopforge/sopforge/internal/runstore"
	"github.com/sopforge/sopforge/internal/transport"
)

func testClock() func() time.Time {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time { return at }
}

func TestHandleMissingMarkerLeavesStoreUntouched(t *testing.T) {
	store := runstore.NewMemoryStore()
	adapter, err := NewAdapter("planning", store, func(context.Context, *runstate.RunState) (string, error) {
		t.Fatal("stage func must not run on a wiring error")
		return "", nil
	})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	_, err = adapter.Handle(context.Background(), transport.NewText("no marker here"))
	var werr *WiringError
	if !errors.As(err, &werr) {
		t.Fatalf("expected WiringError, got %v", err)
	}
	if !errors.Is(err, transport.ErrRunIDMissing) {
		t.Fatalf("expected wrapped ErrRunIDMissing, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("store must stay empty, has %d entries", store.Len())
	}
}

func TestHandleUnknownRunIsDistinctWiringError(t *testing.T) {
	store := runstore.NewMemoryStore()
	adapter, err := NewAdapter("research", store, func(context.Context, *runstate.RunState) (string, error) {
		t.Fatal("stage func must not run without state")
		return "", nil
	})
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	out, err := adapter.Handle(context.Background(), transport.WithRunID("sop-ghost", "seed"))
	if !errors.Is(err, runstore.ErrNotFound) {
		t.Fatalf("expected wrapped ErrNotFound, got %v", err)
	}
	var werr *WiringError
	if !errors.As(err, &werr) {
		t.Fatalf("expected WiringError, got %v", err)
	}
	// The diagnostic message still carries the id for downstream inspection.
	id, idErr := transport.ExtractRunID(out)
	if idErr != nil || id != "sop-ghost" {
		t.Fatalf("diagnostic message lost the id: %q %v", id, idErr)
	}
}

func TestHandleSuccessPersistsAndSummarizes(t *testing.T) {
	store := runstore.NewMemoryStore()
	state := runstate.New("sop-1", runstate.Inputs{Topic: "Spill Response"}, time.Now())
	if err := store.Put(state.ID, state); err != nil {
		t.Fatalf("seed: %v", err)
	}

	adapter, err := NewAdapter("planning", store, func(_ context.Context, st *runstate.RunState) (string, error) {
		st.Status = runstate.StatusPlanned
		return "Planning complete: 5 sections", nil
	}, WithClock(testClock()))
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	out, err := adapter.Handle(context.Background(), transport.WithRunID("sop-1", "go"))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	id, err := transport.ExtractRunID(out)
	if err != nil || id != "sop-1" {
		t.Fatalf("outgoing id: %q %v", id, err)
	}
	if !strings.Contains(out.Text(), "Planning complete") {
		t.Fatalf("missing summary: %q", out.Text())
	}
	stored, err := store.Get("sop-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if stored.Status != runstate.StatusPlanned {
		t.Fatalf("mutation lost: %s", stored.Status)
	}
}

func TestHandleStageFailureIsCapturedInState(t *testing.T) {
	store := runstore.NewMemoryStore()
	state := runstate.New("sop-2", runstate.Inputs{}, time.Now())
	if err := store.Put(state.ID, state); err != nil {
		t.Fatalf("seed: %v", err)
	}

	adapter, err := NewAdapter("draft", store, func(context.Context, *runstate.RunState) (string, error) {
		return "", errors.New("collaborator exploded")
	}, WithClock(testClock()))
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	out, err := adapter.Handle(context.Background(), transport.WithRunID("sop-2", "go"))
	if err != nil {
		t.Fatalf("stage failures must not escape the boundary: %v", err)
	}
	stored, _ := store.Get("sop-2")
	if stored.Status != runstate.StatusFailed {
		t.Fatalf("expected StatusFailed, got %s", stored.Status)
	}
	if len(stored.Errors) != 1 || !strings.Contains(stored.Errors[0].Message, "collaborator exploded") {
		t.Fatalf("error log not populated: %+v", stored.Errors)
	}
	if stored.Errors[0].At != testClock()() {
		t.Fatalf("error entry missing clock timestamp: %v", stored.Errors[0].At)
	}
	// Outgoing message still carries the id.
	id, idErr := transport.ExtractRunID(out)
	if idErr != nil || id != "sop-2" {
		t.Fatalf("failure message lost the id: %q %v", id, idErr)
	}
}
