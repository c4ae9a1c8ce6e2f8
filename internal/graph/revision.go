package graph

import (
	"time"

	"github.com/sopforge/sopforge/internal/runstate"
)

// Decision is the revision controller's verdict after a review pass.
type Decision string

const (
	// DecisionFinish ends the run in StatusCompleted.
	DecisionFinish Decision = "finish"
	// DecisionRevise takes the back-edge to the draft stage.
	DecisionRevise Decision = "revise"
	// DecisionAbort ends the run on its failure path.
	DecisionAbort Decision = "abort"
)

// RevisionController decides, after each review, whether the run loops back
// to drafting or terminates. It is the only component that mutates
// RetryCount, which makes termination a counting argument: the counter only
// grows and is bounded by MaxRevisions.
//
// Transition table:
//
//	status == failed                      -> abort (state untouched)
//	review approved                       -> completed, finish
//	not approved, retries remain          -> retry+1, drafted, revise
//	not approved, retries exhausted       -> completed + terminal note, finish
type RevisionController struct {
	maxRevisions int
	now          func() time.Time
}

// NewRevisionController uses runstate.MaxRevisions as the bound.
func NewRevisionController(clock func() time.Time) *RevisionController {
	if clock == nil {
		clock = time.Now
	}
	return &RevisionController{maxRevisions: runstate.MaxRevisions, now: clock}
}

// Decide applies the transition table to the state left by the review
// stage. It reads the state reachable through the run store, never the
// message text.
func (c *RevisionController) Decide(state *runstate.RunState) Decision {
	if state.Status == runstate.StatusFailed {
		return DecisionAbort
	}
	if state.Review != nil && state.Review.Approved {
		state.Status = runstate.StatusCompleted
		return DecisionFinish
	}
	if state.RetryCount < c.maxRevisions {
		state.RetryCount++
		state.Status = runstate.StatusDrafted
		return DecisionRevise
	}
	state.Status = runstate.StatusCompleted
	state.AppendError(c.now(), "max revisions reached without approval")
	return DecisionFinish
}
