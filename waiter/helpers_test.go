package waiter

import (
	"context"
	"sync"
	"time"

	"github.com/aponysus/await/policy"
)

// fakeClock drives the loop without real sleeping.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return nil
}

func (c *fakeClock) Elapsed(since time.Time) time.Duration {
	return c.Now().Sub(since)
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

func newTestExecutor(clock *fakeClock, opts ...ExecutorOption) *Executor {
	base := []ExecutorOption{
		WithClock(clock.Now),
		WithSleep(clock.Sleep),
		WithJitter(func(int64) int64 { return 0 }),
	}
	return NewExecutor(append(base, opts...)...)
}

type status struct {
	Status string `json:"status"`
}

type codeError struct{ code string }

func (e codeError) Error() string     { return "api error " + e.code }
func (e codeError) ErrorCode() string { return e.code }

// sequence returns an invoker replaying outputs in order, repeating the
// last one, and advancing clock by callTime per call.
func sequence(clock *fakeClock, callTime time.Duration, calls *int, outs ...status) Invoker[string, status] {
	return func(context.Context, string) (status, error) {
		i := *calls
		*calls++
		clock.Advance(callTime)
		if i >= len(outs) {
			i = len(outs) - 1
		}
		return outs[i], nil
	}
}

func activeSpec(minDelay, maxDelay time.Duration) policy.WaiterSpec {
	return policy.MustNew("tables.TableActive",
		policy.Delays(minDelay, maxDelay),
		policy.SucceedWhen(policy.Output("status", policy.StringEquals, "ACTIVE")),
		policy.FailWhen(policy.Output("status", policy.StringEquals, "DELETED")),
	)
}
