package await_test

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aponysus/await/await"
	"github.com/aponysus/await/observe"
	"github.com/aponysus/await/policy"
	"github.com/aponysus/await/waiter"
)

func TestMain(m *testing.M) {
	await.Init(newTestExecutor())
	os.Exit(m.Run())
}

func newTestExecutor() *waiter.Executor {
	done := []policy.Option{
		policy.Delays(time.Millisecond, time.Millisecond),
		policy.SucceedWhen(policy.Output("status", policy.StringEquals, "DONE")),
		policy.FailWhen(policy.Output("status", policy.StringEquals, "FAILED")),
	}
	return waiter.NewDefaultExecutor(
		waiter.WithSpec("jobs.Done", done...),
		waiter.WithSpec("jobs.Timeline", done...),
	)
}

type job struct {
	Status string `json:"status"`
}

func TestWaitForOutput_PollsUntilDone(t *testing.T) {
	var attempts int32
	got, err := await.WaitForOutput(context.Background(), "jobs.Done", "job-1", time.Second, func(ctx context.Context, id string) (job, error) {
		if atomic.AddInt32(&attempts, 1) < 3 {
			return job{Status: "RUNNING"}, nil
		}
		return job{Status: "DONE"}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Status != "DONE" || attempts != 3 {
		t.Fatalf("got %+v after %d attempts", got, attempts)
	}
}

func TestWait_FailureState(t *testing.T) {
	err := await.Wait(context.Background(), "jobs.Done", "job-1", time.Second, func(context.Context, string) (job, error) {
		return job{Status: "FAILED"}, nil
	})
	if waiter.KindOf(err) != waiter.KindAcceptorFailure {
		t.Fatalf("expected acceptor failure, got %v", err)
	}
}

func TestWait_UnknownKey(t *testing.T) {
	err := await.Wait(context.Background(), "jobs.Missing", "job-1", time.Second, func(context.Context, string) (job, error) {
		t.Fatalf("invoker must not run without a spec")
		return job{}, nil
	})
	if !errors.Is(err, waiter.ErrNoSpec) {
		t.Fatalf("expected ErrNoSpec, got %v", err)
	}
}

func TestWaitWithTimeline(t *testing.T) {
	var attempts int32
	_, tl, err := await.WaitWithTimeline(context.Background(), "jobs.Timeline", "job-1", time.Second, func(context.Context, string) (job, error) {
		if atomic.AddInt32(&attempts, 1) == 1 {
			return job{Status: "RUNNING"}, nil
		}
		return job{Status: "DONE"}, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tl.Outcome != observe.OutcomeSucceeded || len(tl.Attempts) != 2 {
		t.Fatalf("timeline=%+v", tl)
	}
	if tl.Key != await.ParseKey("jobs.Timeline") {
		t.Fatalf("key=%+v", tl.Key)
	}
}

func TestParseKey(t *testing.T) {
	cases := []struct {
		input string
		want  await.Key
	}{
		{input: "service.waiter", want: await.Key{Namespace: "service", Name: "waiter"}},
		{input: "waiter", want: await.Key{Name: "waiter"}},
		{input: " service.waiter ", want: await.Key{Namespace: "service", Name: "waiter"}},
		{input: "", want: await.Key{}},
	}

	for _, tc := range cases {
		got := await.ParseKey(tc.input)
		if got != tc.want {
			t.Fatalf("ParseKey(%q) = %+v, want %+v", tc.input, got, tc.want)
		}
	}
}
