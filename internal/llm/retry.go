package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"

	"playlist-digest/internal/retry"
)

// RetryingInvoker wraps a Backend with the bounded exponential backoff
// described by a retry.Policy. Each Invoke builds its own schedule, so one
// invoker is safe to share across goroutines.
type RetryingInvoker struct {
	backend Backend
	policy  retry.Policy
	log     *slog.Logger
	timer   backoff.Timer
	rand    func() float64
}

// RetryOption customizes a RetryingInvoker.
type RetryOption func(*RetryingInvoker)

// WithLogger sets the logger used for retry and failure events.
func WithLogger(log *slog.Logger) RetryOption {
	return func(r *RetryingInvoker) {
		if log != nil {
			r.log = log
		}
	}
}

// WithTimer replaces the wall-clock timer used between attempts.
func WithTimer(t backoff.Timer) RetryOption {
	return func(r *RetryingInvoker) {
		r.timer = t
	}
}

// WithRand sets the jitter source. Values must lie in [0,1).
func WithRand(fn func() float64) RetryOption {
	return func(r *RetryingInvoker) {
		r.rand = fn
	}
}

// NewRetryingInvoker wraps backend with policy.
func NewRetryingInvoker(backend Backend, policy retry.Policy, opts ...RetryOption) *RetryingInvoker {
	r := &RetryingInvoker{
		backend: backend,
		policy:  policy.Normalize(),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Backend returns the wrapped backend.
func (r *RetryingInvoker) Backend() Backend {
	return r.backend
}

// Policy returns the normalized retry policy.
func (r *RetryingInvoker) Policy() retry.Policy {
	return r.policy
}

// TotalCost forwards to the backend's ledger when it keeps one.
func (r *RetryingInvoker) TotalCost() float64 {
	if c, ok := r.backend.(CostReporter); ok {
		return c.TotalCost()
	}
	return 0
}

// Invoke sends prompt to the backend, retrying transient failures until the
// policy's attempt budget is spent. Fatal failures are returned unchanged
// after the first attempt.
func (r *RetryingInvoker) Invoke(ctx context.Context, prompt string) (string, error) {
	var (
		out       string
		attempt   int
		lastErr   error
		permanent bool
	)

	op := func() error {
		if err := ctx.Err(); err != nil {
			permanent = true
			lastErr = err
			return backoff.Permanent(err)
		}
		attempt++
		resp, err := r.backend.RawInvoke(ctx, prompt)
		if err == nil {
			out = resp
			return nil
		}
		lastErr = err
		if !IsRetryable(err) {
			permanent = true
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, delay time.Duration) {
		r.log.Warn("llm call failed, retrying",
			"backend", r.backend.Name(),
			"attempt", attempt,
			"max_attempts", r.policy.MaxAttempts,
			"delay", delay,
			"error", err,
		)
	}

	schedule := backoff.WithContext(
		backoff.WithMaxRetries(r.policy.NewSchedule(r.rand), uint64(r.policy.MaxAttempts-1)),
		ctx,
	)

	err := backoff.RetryNotifyWithTimer(op, schedule, notify, r.timer)
	if err == nil {
		return out, nil
	}

	if permanent {
		if !errors.Is(lastErr, context.Canceled) && !errors.Is(lastErr, context.DeadlineExceeded) {
			r.log.Error("llm call failed with non-retryable error",
				"backend", r.backend.Name(),
				"attempt", attempt,
				"error", lastErr,
			)
		}
		return "", lastErr
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return "", ctxErr
	}

	final := exhausted("invoke "+r.backend.Name(), attempt, lastErr)
	r.log.Error("llm call exhausted retries",
		"backend", r.backend.Name(),
		"attempts", attempt,
		"error", lastErr,
	)
	return "", final
}
