// internal/graph/graph.go
//
// The fixed workflow topology: planning, research, draft, formatting, and
// review in sequence, plus one conditional edge from review back to draft.
// Nothing here is configurable by callers beyond safety limits; this is a
// single linear pipeline with a single bounded back-edge, not a general
// workflow engine.

package graph

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sopforge/sopforge/internal/logging"
	"github.com/sopforge/sopforge/internal/runstate"
	"github.com/sopforge/sopforge/internal/runstore"
	"github.com/sopforge/sopforge/internal/stage"
	"github.com/sopforge/sopforge/internal/transport"
)

// Stage node names, in pipeline order.
const (
	NodePlanning   = "planning"
	NodeResearch   = "research"
	NodeDraft      = "draft"
	NodeFormatting = "formatting"
	NodeReview     = "review"
)

// defaultMaxSteps caps total node executions. A full run with every
// revision taken executes 11 nodes; the cap leaves room while still
// guaranteeing termination under a revision-controller defect.
const defaultMaxSteps = 24

// draftNodeIndex is the back-edge target inside the node slice.
const draftNodeIndex = 2

// Adapters collects the five stage adapters the graph executes.
type Adapters struct {
	Planning   *stage.Adapter
	Research   *stage.Adapter
	Draft      *stage.Adapter
	Formatting *stage.Adapter
	Review     *stage.Adapter
}

// Observer is notified after every node execution with the node name and
// the state it left behind. Used by progress displays.
type Observer func(node string, state *runstate.RunState)

// Graph drives messages through the fixed topology.
type Graph struct {
	nodes    []*stage.Adapter
	revision *RevisionController
	store    runstore.Store
	log      *logging.Logger
	maxSteps int
	observer Observer
}

// Option customizes a graph.
type Option func(*Graph)

// WithLogger attaches a run log.
func WithLogger(log *logging.Logger) Option {
	return func(g *Graph) {
		g.log = log
	}
}

// WithMaxSteps overrides the defensive execution cap (tests only need small
// values).
func WithMaxSteps(n int) Option {
	return func(g *Graph) {
		if n > 0 {
			g.maxSteps = n
		}
	}
}

// WithObserver registers a per-node progress callback.
func WithObserver(fn Observer) Option {
	return func(g *Graph) {
		g.observer = fn
	}
}

// WithClock injects the clock used for revision-controller timestamps.
func WithClock(clock func() time.Time) Option {
	return func(g *Graph) {
		if clock != nil {
			g.revision = NewRevisionController(clock)
		}
	}
}

// New builds the fixed five-node graph.
func New(store runstore.Store, adapters Adapters, opts ...Option) (*Graph, error) {
	if store == nil {
		return nil, errors.New("graph: store is required")
	}
	nodes := []*stage.Adapter{
		adapters.Planning,
		adapters.Research,
		adapters.Draft,
		adapters.Formatting,
		adapters.Review,
	}
	for _, node := range nodes {
		if node == nil {
			return nil, errors.New("graph: all five stage adapters are required")
		}
	}
	g := &Graph{
		nodes:    nodes,
		revision: NewRevisionController(nil),
		store:    store,
		maxSteps: defaultMaxSteps,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// Run drives the seed message through the pipeline until the run reaches a
// terminal state. The terminal state lives in the store; Run only returns
// an error when the pipeline itself cannot proceed (wiring defects, the
// execution cap) rather than when a stage fails.
//
// Failure policy is abort-and-report: once a stage leaves StatusFailed the
// graph stops advancing and the caller reads the failure from the store.
func (g *Graph) Run(ctx context.Context, seed transport.Message) error {
	msg := seed
	idx := 0
	for steps := 0; ; steps++ {
		if steps >= g.maxSteps {
			return fmt.Errorf("graph: execution cap of %d nodes reached", g.maxSteps)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		node := g.nodes[idx]
		out, err := node.Handle(ctx, msg)
		if err != nil {
			return err
		}

		id, err := transport.ExtractRunID(out)
		if err != nil {
			return fmt.Errorf("graph: node %s produced a message without a run id: %w", node.Name(), err)
		}
		state, err := g.store.Get(id)
		if err != nil {
			return fmt.Errorf("graph: node %s: %w", node.Name(), err)
		}
		g.notify(node.Name(), state)

		if state.Status == runstate.StatusFailed {
			g.log.Printf("graph: run %s: aborting after failed %s stage", id, node.Name())
			return nil
		}

		if node.Name() == NodeReview {
			decision := g.revision.Decide(state)
			if err := g.store.Put(id, state); err != nil {
				return fmt.Errorf("graph: persist revision decision: %w", err)
			}
			g.notify("revision", state)
			switch decision {
			case DecisionRevise:
				g.log.Printf("graph: run %s: revision %d/%d", id, state.RetryCount, runstate.MaxRevisions)
				idx = draftNodeIndex
				msg = out
				continue
			default:
				g.log.Printf("graph: run %s: terminal status %s", id, state.Status)
				return nil
			}
		}

		idx++
		msg = out
	}
}

func (g *Graph) notify(node string, state *runstate.RunState) {
	if g.observer != nil {
		g.observer(node, state)
	}
}
