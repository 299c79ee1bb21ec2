// Package polling provides a bounded poll-until-done helper driven by an
// explicit backoff policy, shared by collaborators that expose long-running
// operations.
package polling

import (
	"context"
	"errors"
	"time"
)

// ErrBudgetExhausted reports that the attempt budget ran out before the
// polled operation finished. Callers treat this as a soft failure.
var ErrBudgetExhausted = errors.New("polling: attempt budget exhausted")

// Policy describes a linear backoff schedule: the first wait is Initial,
// each subsequent wait grows by Step, and no wait exceeds Cap.
type Policy struct {
	MaxAttempts int
	Initial     time.Duration
	Step        time.Duration
	Cap         time.Duration
}

// Delay returns the wait before the given 1-based attempt.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := p.Initial + time.Duration(attempt-1)*p.Step
	if p.Cap > 0 && delay > p.Cap {
		delay = p.Cap
	}
	if delay < 0 {
		delay = 0
	}
	return delay
}

// Poll sleeps per the policy before each attempt and then invokes fn.
// fn reports done=true to stop polling; its error is returned verbatim for
// the caller to decide whether the attempt counts as fatal (a non-nil error
// with done=false merely moves on to the next attempt). When the budget is
// exhausted Poll returns ErrBudgetExhausted, and context cancellation is
// surfaced immediately.
func Poll(ctx context.Context, policy Policy, fn func(ctx context.Context, attempt int) (done bool, err error)) error {
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := sleep(ctx, policy.Delay(attempt)); err != nil {
			return err
		}
		done, err := fn(ctx, attempt)
		if done {
			return err
		}
	}
	return ErrBudgetExhausted
}

func sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
