// internal/llm/retry.go
//
// Bounded retry with linear backoff around a collaborator. The external
// call is the only part of a stage expected to fail transiently, so the
// retry policy lives here rather than in the stage adapter.

package llm

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	// MaxAttempts bounds calls per stage invocation.
	MaxAttempts = 3

	// backoffStep scales the wait between attempts: after attempt n the
	// caller waits n * backoffStep.
	backoffStep = 750 * time.Millisecond
)

// Retrying wraps a Client with per-attempt deadlines and backoff. Blank
// output counts as a failed attempt.
type Retrying struct {
	client  Client
	timeout time.Duration
	sleep   func(context.Context, time.Duration) error
}

// RetryOption customizes a Retrying wrapper.
type RetryOption func(*Retrying)

// WithAttemptTimeout sets the per-attempt deadline. Zero disables it.
func WithAttemptTimeout(d time.Duration) RetryOption {
	return func(r *Retrying) {
		r.timeout = d
	}
}

// WithSleep replaces the backoff sleeper (tests use this to avoid waiting).
func WithSleep(sleep func(context.Context, time.Duration) error) RetryOption {
	return func(r *Retrying) {
		if sleep != nil {
			r.sleep = sleep
		}
	}
}

// NewRetrying wraps client with the stage retry policy.
func NewRetrying(client Client, opts ...RetryOption) *Retrying {
	r := &Retrying{
		client: client,
		sleep:  sleepContext,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Invoke tries the wrapped collaborator up to MaxAttempts times, waiting
// attempt*backoffStep between failures. The last failure is returned once
// attempts are exhausted.
func (r *Retrying) Invoke(ctx context.Context, system, user string, maxTokens int) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		text, err := r.invokeOnce(ctx, system, user, maxTokens)
		if err == nil {
			if strings.TrimSpace(text) == "" {
				err = ErrEmptyCompletion
			} else {
				return text, nil
			}
		}
		lastErr = err
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		if attempt < MaxAttempts {
			if err := r.sleep(ctx, time.Duration(attempt)*backoffStep); err != nil {
				return "", err
			}
		}
	}
	return "", fmt.Errorf("llm: %d attempts exhausted: %w", MaxAttempts, lastErr)
}

func (r *Retrying) invokeOnce(ctx context.Context, system, user string, maxTokens int) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	return r.client.Invoke(ctx, system, user, maxTokens)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
