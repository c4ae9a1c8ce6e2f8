// internal/runstate/runstate.go
//
// RunState is the single source of truth for one pipeline execution. Stages
// read and mutate it through the run store; nothing else carries structured
// state between stages.

package runstate

import (
	"fmt"
	"time"
)

// Status enumerates the lifecycle phases of a run.
type Status string

const (
	StatusCreated    Status = "created"
	StatusPlanned    Status = "planned"
	StatusResearched Status = "researched"
	StatusDrafted    Status = "drafted"
	StatusFormatted  Status = "formatted"
	StatusReviewed   Status = "reviewed"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// MaxRevisions bounds the review→draft loop. The retry counter never
// exceeds this value.
const MaxRevisions = 2

// ApprovalThreshold is the minimum overall review score for approval.
const ApprovalThreshold = 8.0

// Inputs holds the immutable request parameters for a run.
type Inputs struct {
	Topic        string
	Industry     string
	Audience     string
	Requirements []string
}

// ErrorEntry is one timestamped line in the append-only error log.
type ErrorEntry struct {
	At      time.Time
	Message string
}

func (e ErrorEntry) String() string {
	return fmt.Sprintf("[%s] %s", e.At.UTC().Format(time.RFC3339), e.Message)
}

// RunState is the complete state for one pipeline run. It is owned by the
// run store for its lifetime and mutated only by the currently executing
// stage.
type RunState struct {
	ID     string
	Inputs Inputs

	// Stage outputs. Each slot is nil/empty until its producing stage
	// runs. ContentSections is rebuilt from scratch on a revision pass.
	Outline           *Outline
	Research          *Findings
	ContentSections   map[string]string
	FormattedDocument string
	Review            *ReviewResult

	Status     Status
	RetryCount int
	Errors     []ErrorEntry

	// UsageUnits counts collaborator resource units consumed across all
	// stages. It only ever grows.
	UsageUnits int

	StartedAt   time.Time
	CompletedAt time.Time
}

// New creates a run in StatusCreated with its inputs fixed for life.
func New(id string, inputs Inputs, startedAt time.Time) *RunState {
	return &RunState{
		ID:        id,
		Inputs:    inputs,
		Status:    StatusCreated,
		StartedAt: startedAt,
	}
}

// AppendError adds a timestamped entry to the error log. The log is never
// cleared.
func (s *RunState) AppendError(at time.Time, message string) {
	s.Errors = append(s.Errors, ErrorEntry{At: at, Message: message})
}

// AddUsage increments the usage counter. Negative deltas are ignored so the
// counter stays monotonic.
func (s *RunState) AddUsage(units int) {
	if units > 0 {
		s.UsageUnits += units
	}
}

// Completed reports whether the run reached a terminal successful state.
func (s *RunState) Completed() bool {
	return s.Status == StatusCompleted
}

// Failed reports whether the run is in the terminal failure state.
func (s *RunState) Failed() bool {
	return s.Status == StatusFailed
}

// ErrorStrings renders the error log for display.
func (s *RunState) ErrorStrings() []string {
	if len(s.Errors) == 0 {
		return nil
	}
	out := make([]string, len(s.Errors))
	for i, entry := range s.Errors {
		out[i] = entry.String()
	}
	return out
}
