// internal/llm/client.go
//
// The generative-text collaborator behind every pipeline stage. Stages only
// see the Client interface; the OpenAI-backed implementation and the local
// mock both satisfy it.

package llm

import (
	"context"
	"errors"
	"fmt"
)

// Client invokes the generative-text collaborator once.
type Client interface {
	Invoke(ctx context.Context, system, user string, maxTokens int) (string, error)
}

// Func adapts a plain function to Client. Handy for tests and canned
// collaborators.
type Func func(ctx context.Context, system, user string, maxTokens int) (string, error)

// Invoke implements Client.
func (f Func) Invoke(ctx context.Context, system, user string, maxTokens int) (string, error) {
	return f(ctx, system, user, maxTokens)
}

// ErrEmptyCompletion reports a collaborator call that succeeded at the
// transport level but produced blank text. Blank output is a failure, never
// an empty success.
var ErrEmptyCompletion = errors.New("llm: collaborator returned blank text")

// TransientError wraps a collaborator failure that is worth retrying.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("llm: transient collaborator failure: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Settings configures a concrete collaborator implementation.
type Settings struct {
	Provider string
	Model    string
	APIKey   string
	BaseURL  string
}
