package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sopforge/sopforge/internal/graph"
	"github.com/sopforge/sopforge/internal/runstate"
)

func newTestModel() Model {
	return New("Forklift Operation", func(observer graph.Observer) (*runstate.RunState, error) {
		return nil, nil
	})
}

func TestStageEventMarksNodeComplete(t *testing.T) {
	m := newTestModel()

	next, _ := m.Update(eventMsg{Node: graph.NodePlanning, Status: runstate.StatusPlanned})
	m = next.(Model)

	if !m.completed[graph.NodePlanning] {
		t.Fatalf("planning not marked complete")
	}
	if m.current != graph.NodeResearch {
		t.Fatalf("current = %q, want %q", m.current, graph.NodeResearch)
	}
	if view := m.View(); !strings.Contains(view, graph.NodePlanning) {
		t.Fatalf("view missing planning node:\n%s", view)
	}
}

func TestRevisionReopensDownstreamNodes(t *testing.T) {
	m := newTestModel()
	for _, node := range m.order {
		next, _ := m.Update(eventMsg{Node: node})
		m = next.(Model)
	}

	next, _ := m.Update(eventMsg{Node: "revision", Status: runstate.StatusDrafted, Retry: 1})
	m = next.(Model)

	if m.revisions != 1 {
		t.Fatalf("revisions = %d, want 1", m.revisions)
	}
	for _, node := range []string{graph.NodeDraft, graph.NodeFormatting, graph.NodeReview} {
		if m.completed[node] {
			t.Fatalf("%s still marked complete after revision", node)
		}
	}
	if m.completed[graph.NodePlanning] != true || m.completed[graph.NodeResearch] != true {
		t.Fatalf("upstream nodes should stay complete")
	}
	if m.current != graph.NodeDraft {
		t.Fatalf("current = %q, want %q", m.current, graph.NodeDraft)
	}
}

func TestDoneMessageQuits(t *testing.T) {
	m := newTestModel()
	final := runstate.New("sop-test", runstate.Inputs{Topic: "Forklift Operation"}, time.Now())
	final.Status = runstate.StatusCompleted

	next, cmd := m.Update(doneMsg{state: final})
	m = next.(Model)

	if cmd == nil {
		t.Fatalf("expected quit command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg, got %T", cmd())
	}
	got, err := m.Final()
	if err != nil {
		t.Fatalf("Final returned error: %v", err)
	}
	if got != final {
		t.Fatalf("Final returned a different state")
	}
	if view := m.View(); !strings.Contains(view, "completed") {
		t.Fatalf("view missing verdict:\n%s", view)
	}
}

func TestQuitKeyExits(t *testing.T) {
	m := newTestModel()
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatalf("expected quit command on ctrl+c")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg, got %T", cmd())
	}
}
