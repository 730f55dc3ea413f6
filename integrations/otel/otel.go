package otel

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/aponysus/await/observe"
	"github.com/aponysus/await/policy"
)

const instrumentationName = "github.com/aponysus/await"

// Observer records one span per waiter invocation with one event per
// attempt. The span is emitted when the invocation ends, using the
// timeline's timestamps, so the observer keeps no per-invocation state.
type Observer struct {
	observe.BaseObserver
	tracer trace.Tracer
}

// NewObserver returns an Observer using tp. Nil uses the global provider.
func NewObserver(tp trace.TracerProvider) *Observer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &Observer{tracer: tp.Tracer(instrumentationName)}
}

func (o *Observer) OnSuccess(ctx context.Context, key policy.Key, tl observe.Timeline) {
	o.record(ctx, key, tl)
}

func (o *Observer) OnFailure(ctx context.Context, key policy.Key, tl observe.Timeline) {
	o.record(ctx, key, tl)
}

func (o *Observer) record(ctx context.Context, key policy.Key, tl observe.Timeline) {
	attrs := []attribute.KeyValue{
		attribute.String("await.waiter", key.String()),
		attribute.String("await.invocation_id", tl.InvocationID),
		attribute.String("await.outcome", string(tl.Outcome)),
		attribute.Int("await.attempts", len(tl.Attempts)),
		attribute.Int64("await.max_wait_ms", tl.MaxWait.Milliseconds()),
	}
	for k, v := range tl.Attributes {
		attrs = append(attrs, attribute.String("await."+k, v))
	}

	_, span := o.tracer.Start(ctx, "await.wait "+key.String(),
		trace.WithTimestamp(tl.Start),
		trace.WithAttributes(attrs...),
	)

	for _, rec := range tl.Attempts {
		evAttrs := []attribute.KeyValue{
			attribute.Int64("await.attempt", rec.Attempt),
			attribute.String("await.decision", rec.Decision.Kind.String()),
			attribute.Int64("await.delay_ms", rec.Delay.Milliseconds()),
			attribute.Int64("await.remaining_ms", rec.Remaining.Milliseconds()),
		}
		if rec.Decision.Reason != "" {
			evAttrs = append(evAttrs, attribute.String("await.reason", rec.Decision.Reason))
		}
		if rec.Err != nil {
			evAttrs = append(evAttrs, attribute.String("await.error", rec.Err.Error()))
		}
		span.AddEvent("attempt "+strconv.FormatInt(rec.Attempt, 10),
			trace.WithTimestamp(rec.EndTime),
			trace.WithAttributes(evAttrs...),
		)
	}

	if tl.Outcome == observe.OutcomeSucceeded {
		span.SetStatus(codes.Ok, "")
	} else {
		if tl.FinalErr != nil {
			span.RecordError(tl.FinalErr, trace.WithTimestamp(tl.End))
		}
		span.SetStatus(codes.Error, string(tl.Outcome))
	}
	span.End(trace.WithTimestamp(tl.End))
}
