// internal/tui/progress.go
//
// Interactive progress view for a pipeline run, following The Elm
// Architecture: the run executes in a background command and feeds stage
// events into the model, which renders the pipeline as it advances.

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sopforge/sopforge/internal/graph"
	"github.com/sopforge/sopforge/internal/runstate"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("62"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	noteStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
)

// RunFunc executes the pipeline, reporting progress through the observer,
// and returns the terminal state.
type RunFunc func(observer graph.Observer) (*runstate.RunState, error)

// StageEvent is one observer notification translated for the view.
type StageEvent struct {
	Node   string
	Status runstate.Status
	Retry  int
}

type eventMsg StageEvent

type doneMsg struct {
	state *runstate.RunState
	err   error
}

// Model renders one run's progress.
type Model struct {
	topic   string
	run     RunFunc
	events  chan StageEvent
	spinner spinner.Model

	order     []string
	completed map[string]bool
	current   string
	revisions int

	final *runstate.RunState
	err   error
}

// New builds the progress model for a run.
func New(topic string, run RunFunc) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	return Model{
		topic:   topic,
		run:     run,
		events:  make(chan StageEvent, 16),
		spinner: sp,
		order: []string{
			graph.NodePlanning,
			graph.NodeResearch,
			graph.NodeDraft,
			graph.NodeFormatting,
			graph.NodeReview,
		},
		completed: make(map[string]bool),
		current:   graph.NodePlanning,
	}
}

// Init starts the spinner, the run itself, and the event pump.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.startRun(), m.nextEvent())
}

func (m Model) startRun() tea.Cmd {
	events := m.events
	run := m.run
	return func() tea.Msg {
		state, err := run(func(node string, st *runstate.RunState) {
			select {
			case events <- StageEvent{Node: node, Status: st.Status, Retry: st.RetryCount}:
			default:
			}
		})
		return doneMsg{state: state, err: err}
	}
}

func (m Model) nextEvent() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return eventMsg(<-events)
	}
}

// Update advances the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case eventMsg:
		m.apply(StageEvent(msg))
		return m, m.nextEvent()
	case doneMsg:
		m.final = msg.state
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m *Model) apply(ev StageEvent) {
	switch ev.Node {
	case "revision":
		m.revisions = ev.Retry
		if ev.Status == runstate.StatusDrafted {
			// Back-edge taken: draft runs again.
			for _, node := range []string{graph.NodeDraft, graph.NodeFormatting, graph.NodeReview} {
				delete(m.completed, node)
			}
			m.current = graph.NodeDraft
		}
	default:
		m.completed[ev.Node] = true
		m.current = m.nextPending()
	}
}

func (m *Model) nextPending() string {
	for _, node := range m.order {
		if !m.completed[node] {
			return node
		}
	}
	return ""
}

// Final returns the terminal state once the run has finished.
func (m Model) Final() (*runstate.RunState, error) {
	return m.final, m.err
}

// View renders the pipeline.
func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render(fmt.Sprintf("sopforge: %s", m.topic)))
	sb.WriteString("\n\n")

	for _, node := range m.order {
		switch {
		case m.completed[node]:
			sb.WriteString(doneStyle.Render("  ✓ " + node))
		case node == m.current && m.final == nil:
			sb.WriteString("  " + m.spinner.View() + " " + node)
		default:
			sb.WriteString(pendingStyle.Render("  · " + node))
		}
		sb.WriteString("\n")
	}
	if m.revisions > 0 {
		sb.WriteString(noteStyle.Render(fmt.Sprintf("\n  revision pass %d/%d\n", m.revisions, runstate.MaxRevisions)))
	}

	if m.final != nil || m.err != nil {
		sb.WriteString("\n")
		sb.WriteString(m.verdict())
		sb.WriteString("\n")
	} else {
		sb.WriteString(pendingStyle.Render("\n  q to quit\n"))
	}
	return sb.String()
}

func (m Model) verdict() string {
	if m.err != nil {
		return failStyle.Render(fmt.Sprintf("  submission failed: %v", m.err))
	}
	if m.final == nil {
		return ""
	}
	switch m.final.Status {
	case runstate.StatusCompleted:
		line := "  completed"
		if m.final.Review != nil {
			line = fmt.Sprintf("  completed: score %.1f/10", m.final.Review.OverallScore)
		}
		return doneStyle.Render(line)
	case runstate.StatusFailed:
		return failStyle.Render(fmt.Sprintf("  failed: %d errors logged", len(m.final.Errors)))
	default:
		return noteStyle.Render(fmt.Sprintf("  finished with status %s", m.final.Status))
	}
}
