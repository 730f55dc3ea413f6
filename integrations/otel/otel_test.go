package otel_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	otelobs "github.com/aponysus/await/integrations/otel"
	"github.com/aponysus/await/policy"
	"github.com/aponysus/await/waiter"
)

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

func newProvider() (*sdktrace.TracerProvider, *tracetest.SpanRecorder) {
	rec := tracetest.NewSpanRecorder()
	return sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)), rec
}

func attr(attrs []attribute.KeyValue, key string) (attribute.Value, bool) {
	for _, kv := range attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestObserver_SpanPerInvocation(t *testing.T) {
	tp, rec := newProvider()
	exec := waiter.NewDefaultExecutor(waiter.WithObserver(otelobs.NewObserver(tp)), waiter.WithSleep(noSleep))
	spec := policy.MustNew("jobs.Done", policy.SucceedWhen(policy.Output("status", policy.StringEquals, "DONE")))

	calls := 0
	invoke := func(context.Context, string) (map[string]any, error) {
		calls++
		if calls < 2 {
			return map[string]any{"status": "RUNNING"}, nil
		}
		return map[string]any{"status": "DONE"}, nil
	}
	require.NoError(t, waiter.NewWithExecutor(exec, spec, invoke).Wait(context.Background(), "job", time.Minute))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "await.wait jobs.Done", span.Name())
	assert.Equal(t, codes.Ok, span.Status().Code)
	require.Len(t, span.Events(), 2)
	assert.Equal(t, "attempt 1", span.Events()[0].Name)

	v, ok := attr(span.Attributes(), "await.outcome")
	require.True(t, ok)
	assert.Equal(t, "succeeded", v.AsString())

	v, ok = attr(span.Events()[0].Attributes, "await.decision")
	require.True(t, ok)
	assert.Equal(t, "retry", v.AsString())
}

func TestObserver_FailureStatus(t *testing.T) {
	tp, rec := newProvider()
	exec := waiter.NewDefaultExecutor(waiter.WithObserver(otelobs.NewObserver(tp)), waiter.WithSleep(noSleep))
	spec := policy.MustNew("jobs.Done", policy.FailWhen(policy.Success()))

	invoke := func(context.Context, string) (map[string]any, error) { return nil, nil }
	require.Error(t, waiter.NewWithExecutor(exec, spec, invoke).Wait(context.Background(), "job", time.Minute))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "failed", spans[0].Status().Description)
}
