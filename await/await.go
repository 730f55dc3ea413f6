package await

import (
	"context"
	"time"

	"github.com/aponysus/await/observe"
	"github.com/aponysus/await/policy"
	"github.com/aponysus/await/waiter"
)

// Key is the structured form of a waiter key.
type Key = policy.Key

// ParseKey parses "namespace.name" into a Key.
func ParseKey(s string) Key { return policy.ParseKey(s) }

// Init sets the global default executor.
// It must be called before Wait/WaitForOutput are used.
func Init(exec *waiter.Executor) {
	waiter.SetGlobal(exec)
}

// Wait polls invoke with the default executor and the spec registered for
// key until the spec's acceptors reach a terminal state or maxWait is spent.
func Wait[In, Out any](ctx context.Context, key string, input In, maxWait time.Duration, invoke waiter.Invoker[In, Out], optFns ...func(*waiter.Options)) error {
	_, err := WaitForOutput(ctx, key, input, maxWait, invoke, optFns...)
	return err
}

// WaitForOutput is Wait returning the output of the successful attempt.
func WaitForOutput[In, Out any](ctx context.Context, key string, input In, maxWait time.Duration, invoke waiter.Invoker[In, Out], optFns ...func(*waiter.Options)) (Out, error) {
	w, err := waiter.ForKey(ctx, waiter.DefaultExecutor(), policy.ParseKey(key), invoke)
	if err != nil {
		var zero Out
		return zero, err
	}
	return w.WaitForOutput(ctx, input, maxWait, optFns...)
}

// WaitWithTimeline is WaitForOutput that also returns the invocation's
// Timeline.
func WaitWithTimeline[In, Out any](ctx context.Context, key string, input In, maxWait time.Duration, invoke waiter.Invoker[In, Out], optFns ...func(*waiter.Options)) (Out, observe.Timeline, error) {
	ctx, capture := observe.RecordTimeline(ctx)
	out, err := WaitForOutput(ctx, key, input, maxWait, invoke, optFns...)

	var tl observe.Timeline
	if t := capture.Timeline(); t != nil {
		tl = *t
	}
	return out, tl, err
}
