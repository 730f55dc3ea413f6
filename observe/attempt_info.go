package observe

import (
	"context"
	"time"
)

type attemptInfoKey struct{}

// AttemptInfo is per-attempt metadata attached to the context passed to the
// invoker.
type AttemptInfo struct {
	// Attempt is 1-based.
	Attempt      int64
	Waiter       string
	InvocationID string
	// Remaining is the wait budget left when the attempt started.
	Remaining time.Duration
}

// WithAttemptInfo returns a context derived from ctx that carries info.
func WithAttemptInfo(ctx context.Context, info AttemptInfo) context.Context {
	return context.WithValue(ctx, attemptInfoKey{}, info)
}

// AttemptFromContext returns the AttemptInfo from ctx, if present.
func AttemptFromContext(ctx context.Context) (AttemptInfo, bool) {
	info, ok := ctx.Value(attemptInfoKey{}).(AttemptInfo)
	return info, ok
}
