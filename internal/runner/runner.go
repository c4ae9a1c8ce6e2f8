// internal/runner/runner.go
//
// The entry point that owns a run end to end: create state, register it in
// the store, seed the first message, drive the graph, and hand the terminal
// state back to the caller.

package runner

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sopforge/sopforge/internal/graph"
	"github.com/sopforge/sopforge/internal/logging"
	"github.com/sopforge/sopforge/internal/runstate"
	"github.com/sopforge/sopforge/internal/runstore"
	"github.com/sopforge/sopforge/internal/transport"
)

// Request carries the caller's document parameters.
type Request struct {
	Topic        string
	Industry     string
	Audience     string
	Requirements []string
}

// Runner submits document runs to the workflow graph.
type Runner struct {
	store runstore.Store
	graph *graph.Graph
	log   *logging.Logger
	now   func() time.Time
	newID func() string
	evict bool
}

// Option customizes a runner.
type Option func(*Runner)

// WithLogger attaches a run log.
func WithLogger(log *logging.Logger) Option {
	return func(r *Runner) {
		r.log = log
	}
}

// WithClock injects a deterministic clock.
func WithClock(clock func() time.Time) Option {
	return func(r *Runner) {
		if clock != nil {
			r.now = clock
		}
	}
}

// WithIDGenerator overrides run-id generation (tests want stable ids).
func WithIDGenerator(gen func() string) Option {
	return func(r *Runner) {
		if gen != nil {
			r.newID = gen
		}
	}
}

// WithKeepState disables post-run eviction so callers can inspect the store
// after Submit returns.
func WithKeepState() Option {
	return func(r *Runner) {
		r.evict = false
	}
}

// New wires a runner to its store and graph.
func New(store runstore.Store, g *graph.Graph, opts ...Option) (*Runner, error) {
	if store == nil {
		return nil, errors.New("runner: store is required")
	}
	if g == nil {
		return nil, errors.New("runner: graph is required")
	}
	r := &Runner{
		store: store,
		graph: g,
		now:   time.Now,
		newID: defaultRunID,
		evict: true,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// defaultRunID derives a high-entropy correlation id. Never a hash of user
// input: distinct runs on the same topic must never collide.
func defaultRunID() string {
	return "sop-" + uuid.NewString()
}

// Submit runs the whole pipeline synchronously and returns the terminal
// run state. Pipeline failures are reported through the state's status and
// error log; the returned error is reserved for submission-time setup
// problems.
func (r *Runner) Submit(ctx context.Context, req Request) (*runstate.RunState, error) {
	if strings.TrimSpace(req.Topic) == "" {
		return nil, errors.New("runner: topic is required")
	}
	if strings.TrimSpace(req.Industry) == "" {
		return nil, errors.New("runner: industry is required")
	}
	audience := req.Audience
	if audience == "" {
		audience = "General staff"
	}

	id := r.newID()
	state := runstate.New(id, runstate.Inputs{
		Topic:        req.Topic,
		Industry:     req.Industry,
		Audience:     audience,
		Requirements: req.Requirements,
	}, r.now())

	if err := r.store.Put(id, state); err != nil {
		return nil, fmt.Errorf("runner: register run: %w", err)
	}
	r.log.Printf("runner: run %s: submitted topic=%q industry=%q", id, req.Topic, req.Industry)

	seed := transport.WithRunID(id, fmt.Sprintf("generate SOP for %q", req.Topic))
	if err := r.graph.Run(ctx, seed); err != nil {
		// Graph-level defects (wiring, execution cap, cancellation)
		// are folded into the failure surface of the state.
		state.AppendError(r.now(), fmt.Sprintf("workflow aborted: %v", err))
		state.Status = runstate.StatusFailed
		r.log.Printf("runner: run %s: aborted: %v", id, err)
	}

	final, err := r.store.Get(id)
	if err != nil {
		// The state vanished mid-run; fall back to our handle so the
		// caller still sees the failure log.
		final = state
	}
	final.CompletedAt = r.now()
	if r.evict {
		if err := r.store.Delete(id); err != nil {
			r.log.Printf("runner: run %s: evict: %v", id, err)
		}
	}
	r.log.Printf("runner: run %s: finished status=%s usage=%d errors=%d",
		id, final.Status, final.UsageUnits, len(final.Errors))
	return final, nil
}
