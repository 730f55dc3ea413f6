package waiter

import (
	"context"
	"time"
)

// sleepWithContext blocks for d or until ctx ends, whichever is first. A
// non-positive d still reports an already-ended ctx.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
