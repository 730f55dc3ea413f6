package prometheus_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	promobs "github.com/aponysus/await/integrations/prometheus"
	"github.com/aponysus/await/policy"
	"github.com/aponysus/await/waiter"
)

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func TestObserver_CountsInvocationsAndAttempts(t *testing.T) {
	reg := prometheus.NewRegistry()
	obs, err := promobs.NewObserver(reg, promobs.Config{})
	require.NoError(t, err)

	exec := waiter.NewDefaultExecutor(waiter.WithObserver(obs), waiter.WithSleep(noSleep))
	spec := policy.MustNew("jobs.Done",
		policy.SucceedWhen(policy.Output("status", policy.StringEquals, "DONE")),
		policy.FailWhen(policy.Output("status", policy.StringEquals, "FAILED")),
	)

	calls := 0
	invoke := func(context.Context, string) (map[string]any, error) {
		calls++
		if calls < 3 {
			return map[string]any{"status": "RUNNING"}, nil
		}
		return map[string]any{"status": "DONE"}, nil
	}
	require.NoError(t, waiter.NewWithExecutor(exec, spec, invoke).Wait(context.Background(), "job", time.Minute))

	failing := func(context.Context, string) (map[string]any, error) {
		return map[string]any{"status": "FAILED"}, nil
	}
	err = waiter.NewWithExecutor(exec, spec, failing).Wait(context.Background(), "job", time.Minute)
	require.Error(t, err)

	expected := `
# HELP await_invocations_total Total number of waiter invocations by outcome
# TYPE await_invocations_total counter
await_invocations_total{outcome="failed",waiter="jobs.Done"} 1
await_invocations_total{outcome="succeeded",waiter="jobs.Done"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "await_invocations_total"))

	expected = `
# HELP await_attempts_total Total number of waiter attempts by decision
# TYPE await_attempts_total counter
await_attempts_total{decision="failure",waiter="jobs.Done"} 1
await_attempts_total{decision="retry",waiter="jobs.Done"} 2
await_attempts_total{decision="success",waiter="jobs.Done"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "await_attempts_total"))

	series, err := testutil.GatherAndCount(reg, "await_wait_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, series)
}

func TestNewObserver_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := promobs.NewObserver(reg, promobs.Config{Namespace: "jobs"})
	require.NoError(t, err)

	_, err = promobs.NewObserver(reg, promobs.Config{Namespace: "jobs"})
	var are prometheus.AlreadyRegisteredError
	assert.True(t, errors.As(err, &are))
}
