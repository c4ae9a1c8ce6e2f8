// internal/stage/stage.go
//
// The adapter that lets a business stage function be driven by the
// text-only transport: recover the correlation id, load run state from the
// store, run the stage, persist, and emit the next message. Every error a
// stage can raise is caught at this boundary and turned into state: the
// host process never crashes because a stage did.

package stage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sopforge/sopforge/internal/logging"
	"github.com/sopforge/sopforge/internal/runstate"
	"github.com/sopforge/sopforge/internal/runstore"
	"github.com/sopforge/sopforge/internal/transport"
)

// Func is the business function for one pipeline stage. It mutates state in
// place and returns a short summary of what changed for the outgoing
// message. The collaborator call inside it is the only part expected to
// fail transiently.
type Func func(ctx context.Context, state *runstate.RunState) (summary string, err error)

// WiringError reports a message that cannot be tied to a run: either the
// correlation marker is missing, or the id resolves to nothing in the
// store. Wiring errors are never retried; they are defects in message
// construction, not transient conditions.
type WiringError struct {
	Stage string
	Err   error
}

func (e *WiringError) Error() string {
	return fmt.Sprintf("stage %s: wiring error: %v", e.Stage, e.Err)
}

func (e *WiringError) Unwrap() error {
	return e.Err
}

// Adapter wraps one stage function for execution inside the workflow graph.
type Adapter struct {
	name  string
	fn    Func
	store runstore.Store
	log   *logging.Logger
	now   func() time.Time
}

// Option customizes an adapter.
type Option func(*Adapter)

// WithLogger attaches a run log.
func WithLogger(log *logging.Logger) Option {
	return func(a *Adapter) {
		a.log = log
	}
}

// WithClock injects a deterministic clock for error timestamps.
func WithClock(clock func() time.Time) Option {
	return func(a *Adapter) {
		if clock != nil {
			a.now = clock
		}
	}
}

// NewAdapter wires a stage function to the run store.
func NewAdapter(name string, store runstore.Store, fn Func, opts ...Option) (*Adapter, error) {
	if name == "" {
		return nil, errors.New("stage: name is required")
	}
	if store == nil {
		return nil, fmt.Errorf("stage %s: store is required", name)
	}
	if fn == nil {
		return nil, fmt.Errorf("stage %s: func is required", name)
	}
	adapter := &Adapter{
		name:  name,
		fn:    fn,
		store: store,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(adapter)
	}
	return adapter, nil
}

// Name returns the stage's node name.
func (a *Adapter) Name() string {
	return a.name
}

// Handle runs the stage against an incoming message.
//
// A missing run-id marker or an unknown id aborts immediately with a
// WiringError and leaves the store untouched. A stage failure is recorded
// into the run's error log, flips the run to StatusFailed, and still
// produces an outgoing message carrying the id so the store stays
// inspectable downstream.
func (a *Adapter) Handle(ctx context.Context, in transport.Message) (transport.Message, error) {
	id, err := transport.ExtractRunID(in)
	if err != nil {
		a.log.Printf("stage %s: %v", a.name, err)
		return transport.Message{}, &WiringError{Stage: a.name, Err: err}
	}

	state, err := a.store.Get(id)
	if err != nil {
		a.log.Printf("stage %s: run %s: %v", a.name, id, err)
		out := transport.WithRunID(id, fmt.Sprintf("%s could not run: %v", a.name, err))
		return out, &WiringError{Stage: a.name, Err: err}
	}

	a.log.Printf("stage %s: run %s: starting (status=%s)", a.name, id, state.Status)

	summary, err := a.fn(ctx, state)
	if err != nil {
		state.AppendError(a.now(), fmt.Sprintf("%s failed: %v", a.name, err))
		state.Status = runstate.StatusFailed
		if putErr := a.store.Put(id, state); putErr != nil {
			return transport.Message{}, fmt.Errorf("stage %s: persist after failure: %w", a.name, putErr)
		}
		a.log.Printf("stage %s: run %s: FAILED: %v", a.name, id, err)
		return transport.WithRunID(id, fmt.Sprintf("%s FAILED: %v", a.name, err)), nil
	}

	// Explicit put even though the store holds a reference; a
	// copy-on-write store still observes the mutation.
	if err := a.store.Put(id, state); err != nil {
		return transport.Message{}, fmt.Errorf("stage %s: persist: %w", a.name, err)
	}

	a.log.Printf("stage %s: run %s: %s", a.name, id, summary)
	return transport.WithRunID(id, summary), nil
}
