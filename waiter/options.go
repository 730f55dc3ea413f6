package waiter

import (
	"context"
	"fmt"
	"time"

	"github.com/aponysus/await/classify"
	"github.com/aponysus/await/policy"
)

// Options are the per-invocation settings of a wait. They start from the
// spec's delays and are modified by option functions before the first
// attempt; the loop never changes them afterwards.
type Options struct {
	// MinDelay is the minimum delay between attempts. Zero is allowed.
	MinDelay time.Duration
	// MaxDelay is the maximum delay between attempts. Zero or negative falls
	// back to the spec's MaxDelay.
	MaxDelay time.Duration

	// Retryable replaces the spec's acceptors when set. A classifier that
	// returns classify.DecisionUnknown defers to the acceptors.
	Retryable classify.Classifier

	// AttemptHook is called before every attempt with the 1-based attempt
	// number. It cannot influence the wait.
	AttemptHook func(ctx context.Context, attempt int64)

	// LogWaitAttempts logs every attempt at debug level.
	LogWaitAttempts bool
}

func (o *Options) resolve(spec policy.WaiterSpec, maxWait time.Duration) error {
	if maxWait <= 0 {
		return fmt.Errorf("maximum wait time for waiter must be greater than zero")
	}
	if o.MaxDelay <= 0 {
		o.MaxDelay = spec.MaxDelay
	}
	if o.MinDelay < 0 {
		return fmt.Errorf("minimum waiter delay %v must not be negative", o.MinDelay)
	}
	if o.MinDelay > o.MaxDelay {
		return fmt.Errorf("minimum waiter delay %v must be lesser than or equal to maximum waiter delay of %v", o.MinDelay, o.MaxDelay)
	}
	return nil
}

// WithDelays overrides both delay bounds.
func WithDelays(minDelay, maxDelay time.Duration) func(*Options) {
	return func(o *Options) {
		o.MinDelay = minDelay
		o.MaxDelay = maxDelay
	}
}

// WithRetryable overrides the acceptors with a retry predicate.
func WithRetryable(f classify.RetryableFunc) func(*Options) {
	return func(o *Options) {
		o.Retryable = classify.Retryable(f)
	}
}

// WithAttemptHook sets Options.AttemptHook.
func WithAttemptHook(hook func(ctx context.Context, attempt int64)) func(*Options) {
	return func(o *Options) {
		o.AttemptHook = hook
	}
}

// WithAttemptLogging sets Options.LogWaitAttempts.
func WithAttemptLogging(enabled bool) func(*Options) {
	return func(o *Options) {
		o.LogWaitAttempts = enabled
	}
}
