package observe

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/aponysus/await/classify"
	"github.com/aponysus/await/policy"
)

// Outcome is the terminal state of a waiter invocation.
type Outcome string

const (
	OutcomeUnknown   Outcome = ""
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomeTimedOut  Outcome = "timed_out"
	OutcomeCancelled Outcome = "cancelled"
)

// AttemptRecord describes a single attempt.
type AttemptRecord struct {
	Attempt   int64
	StartTime time.Time
	EndTime   time.Time

	Err      error
	Decision classify.Decision

	// Remaining is the wait budget left once the attempt returned.
	Remaining time.Duration
	// Delay is the sleep scheduled after this attempt, zero for the last one.
	Delay time.Duration
}

// Timeline is the structured record of a single invocation and all of its
// attempts.
type Timeline struct {
	Key          policy.Key
	InvocationID string
	Start        time.Time
	End          time.Time
	MaxWait      time.Duration

	// Attributes holds invocation-level metadata (spec source, origin, overrides).
	Attributes map[string]string

	Attempts []AttemptRecord
	Outcome  Outcome
	FinalErr error
}

// NewInvocationID returns a random identifier for one invocation.
func NewInvocationID() string {
	return uuid.NewString()
}

// Observer receives lifecycle callbacks for a single invocation. Callbacks
// run synchronously on the waiting goroutine and must not block.
type Observer interface {
	OnStart(ctx context.Context, key policy.Key, spec policy.WaiterSpec)
	OnAttempt(ctx context.Context, key policy.Key, rec AttemptRecord)
	OnSuccess(ctx context.Context, key policy.Key, tl Timeline)
	OnFailure(ctx context.Context, key policy.Key, tl Timeline)
}
