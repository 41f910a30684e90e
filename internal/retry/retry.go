// Package retry runs remote operations under a bounded retry-with-recovery policy.
//
// A Policy retries only the failures its classifier accepts. Before every retry
// the policy runs its recovery action (usually a full reconnect), because the
// remote session is assumed to be corrupted after a timeout.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// DefaultMaxAttempts is the retry budget shared by every guarded operation.
	DefaultMaxAttempts = 10
	// DefaultDelay is the constant wait between two attempts.
	DefaultDelay = 2000 * time.Millisecond
)

// Classifier reports whether err is worth another attempt.
type Classifier func(err error) bool

// RecoverFunc restores the state needed by the next attempt.
type RecoverFunc func(ctx context.Context) error

// Policy is a fixed-delay, fixed-budget retry policy.
type Policy struct {
	// Name identifies the policy in logs, so retries of different guarded calls can be correlated.
	Name        string
	MaxAttempts int
	Delay       time.Duration
	Retryable   Classifier
	Recover     RecoverFunc
}

// New returns a policy with the default budget and delay.
func New(name string, retryable Classifier, recover RecoverFunc) *Policy {
	return &Policy{
		Name:        name,
		MaxAttempts: DefaultMaxAttempts,
		Delay:       DefaultDelay,
		Retryable:   retryable,
		Recover:     recover,
	}
}

// Do runs op until it succeeds, fails with a non-retryable error, or the budget is spent.
// The last error is returned unchanged. Attempt counters live only for one call.
func (p *Policy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	attempt := 0
	operation := func() error {
		attempt++

		if attempt > 1 && p.Recover != nil {
			if err := p.Recover(ctx); err != nil {
				if p.isRetryable(err) {
					return err
				}
				return backoff.Permanent(fmt.Errorf("%s: recover: %w", p.Name, err))
			}
		}

		err := op(ctx)
		if err == nil {
			return nil
		}
		if !p.isRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	b := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(p.Delay), uint64(maxAttempts-1)),
		ctx,
	)

	notify := func(err error, wait time.Duration) {
		slog.Warn("retry", "policy", p.Name, "attempt", attempt, "max", maxAttempts, "wait", wait, "error", err)
	}

	return backoff.RetryNotify(operation, b, notify)
}

func (p *Policy) isRetryable(err error) bool {
	return p.Retryable != nil && p.Retryable(err)
}
