package observe

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aponysus/await/policy"
)

// LogObserver writes lifecycle events to a zerolog logger. Attempts are
// logged at debug level, successes at info and failures at warn.
type LogObserver struct {
	Logger zerolog.Logger
}

// NewLogObserver returns an observer that logs with a "component" field.
func NewLogObserver(logger zerolog.Logger) LogObserver {
	return LogObserver{Logger: logger.With().Str("component", "waiter").Logger()}
}

func (o LogObserver) OnStart(_ context.Context, key policy.Key, spec policy.WaiterSpec) {
	o.Logger.Debug().
		Str("waiter", key.String()).
		Dur("min_delay", spec.MinDelay).
		Dur("max_delay", spec.MaxDelay).
		Int("acceptors", len(spec.Acceptors)).
		Str("source", string(spec.Meta.Source)).
		Msg("waiter started")
}

func (o LogObserver) OnAttempt(_ context.Context, key policy.Key, rec AttemptRecord) {
	ev := o.Logger.Debug().
		Str("waiter", key.String()).
		Int64("attempt", rec.Attempt).
		Str("decision", rec.Decision.Kind.String()).
		Dur("elapsed", rec.EndTime.Sub(rec.StartTime)).
		Dur("remaining", rec.Remaining).
		Dur("delay", rec.Delay)
	if rec.Err != nil {
		ev = ev.AnErr("attempt_error", rec.Err)
	}
	ev.Msg("waiter attempt")
}

func (o LogObserver) OnSuccess(_ context.Context, key policy.Key, tl Timeline) {
	o.Logger.Info().
		Str("waiter", key.String()).
		Str("invocation_id", tl.InvocationID).
		Int("attempts", len(tl.Attempts)).
		Dur("elapsed", tl.End.Sub(tl.Start)).
		Msg("waiter succeeded")
}

func (o LogObserver) OnFailure(_ context.Context, key policy.Key, tl Timeline) {
	o.Logger.Warn().
		Str("waiter", key.String()).
		Str("invocation_id", tl.InvocationID).
		Str("outcome", string(tl.Outcome)).
		Int("attempts", len(tl.Attempts)).
		Dur("elapsed", tl.End.Sub(tl.Start)).
		Err(tl.FinalErr).
		Msg("waiter failed")
}
