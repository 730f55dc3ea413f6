package waiter

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/aponysus/await/classify"
	"github.com/aponysus/await/observe"
	"github.com/aponysus/await/policy"
)

// Invoker performs one attempt of the awaited operation.
type Invoker[In, Out any] func(ctx context.Context, input In) (Out, error)

// Waiter polls an operation until its spec's acceptors reach a terminal
// state or the wait budget runs out. A Waiter holds no per-invocation state;
// concurrent waits on the same Waiter are independent.
type Waiter[In, Out any] struct {
	exec     *Executor
	spec     policy.WaiterSpec
	specErr  error
	invoke   Invoker[In, Out]
	defaults []func(*Options)
}

// New builds a waiter on the default executor.
func New[In, Out any](spec policy.WaiterSpec, invoke Invoker[In, Out], optFns ...func(*Options)) *Waiter[In, Out] {
	return NewWithExecutor(nil, spec, invoke, optFns...)
}

// NewWithExecutor builds a waiter on exec; nil uses DefaultExecutor. optFns
// apply to every wait before the per-call options. An invalid spec is
// reported by the first wait.
func NewWithExecutor[In, Out any](exec *Executor, spec policy.WaiterSpec, invoke Invoker[In, Out], optFns ...func(*Options)) *Waiter[In, Out] {
	normalized, err := spec.Normalize()
	return &Waiter[In, Out]{
		exec:     exec,
		spec:     normalized,
		specErr:  err,
		invoke:   invoke,
		defaults: optFns,
	}
}

// ForKey builds a waiter for the spec exec resolves under key.
func ForKey[In, Out any](ctx context.Context, exec *Executor, key policy.Key, invoke Invoker[In, Out], optFns ...func(*Options)) (*Waiter[In, Out], error) {
	exec = resolveExecutor(exec)
	spec, err := exec.Spec(ctx, key)
	if err != nil {
		return nil, err
	}
	return NewWithExecutor(exec, spec, invoke, optFns...), nil
}

// Spec returns the normalized spec.
func (w *Waiter[In, Out]) Spec() policy.WaiterSpec { return w.spec }

// Wait polls until success, failure, cancellation or the maxWait budget is
// spent.
func (w *Waiter[In, Out]) Wait(ctx context.Context, input In, maxWait time.Duration, optFns ...func(*Options)) error {
	_, err := w.WaitForOutput(ctx, input, maxWait, optFns...)
	return err
}

// WaitForOutput is Wait returning the output of the successful attempt.
func (w *Waiter[In, Out]) WaitForOutput(ctx context.Context, input In, maxWait time.Duration, optFns ...func(*Options)) (Out, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	exec := resolveExecutor(w.exec)
	name := w.spec.Name()

	var zero Out
	if w.specErr != nil {
		return zero, &Error{Kind: KindValidation, Waiter: name, Err: w.specErr}
	}
	if w.invoke == nil {
		return zero, &Error{Kind: KindValidation, Waiter: name, Msg: "waiter has no invoker"}
	}

	opts := Options{MinDelay: w.spec.MinDelay, MaxDelay: w.spec.MaxDelay}
	for _, fn := range w.defaults {
		if fn != nil {
			fn(&opts)
		}
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&opts)
		}
	}
	if err := opts.resolve(w.spec, maxWait); err != nil {
		return zero, &Error{Kind: KindValidation, Waiter: name, Err: err}
	}

	var cl classify.Classifier = exec.evaluator(w.spec)
	if opts.Retryable != nil {
		cl = classify.Chain{opts.Retryable, cl}
	}

	return run(ctx, exec, w.spec, w.invoke, cl, input, maxWait, opts)
}

type invocation struct {
	exec    *Executor
	spec    policy.WaiterSpec
	tl      observe.Timeline
	capture *observe.TimelineCapture
}

func run[In, Out any](ctx context.Context, exec *Executor, spec policy.WaiterSpec, invoke Invoker[In, Out], cl classify.Classifier, input In, maxWait time.Duration, opts Options) (Out, error) {
	var zero Out
	name := spec.Name()
	key := spec.Key

	inv := &invocation{exec: exec, spec: spec}
	inv.capture, _ = observe.TimelineCaptureFromContext(ctx)
	inv.tl = observe.Timeline{
		Key:          key,
		InvocationID: observe.NewInvocationID(),
		Start:        exec.clock(),
		MaxWait:      maxWait,
		Attributes: map[string]string{
			"spec_source": string(spec.Meta.Source),
		},
	}
	if spec.Meta.Origin != "" {
		inv.tl.Attributes["spec_origin"] = spec.Meta.Origin
	}
	if opts.Retryable != nil {
		inv.tl.Attributes["retryable_override"] = "true"
	}
	exec.observer.OnStart(ctx, key, spec)

	ctx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	remaining := maxWait
	var attempt int64
	for {
		attempt++

		attemptCtx := observe.WithAttemptInfo(observe.WithoutTimelineCapture(ctx), observe.AttemptInfo{
			Attempt:      attempt,
			Waiter:       name,
			InvocationID: inv.tl.InvocationID,
			Remaining:    remaining,
		})
		if opts.LogWaitAttempts {
			exec.logger.Debug().
				Str("waiter", name).
				Int64("attempt", attempt).
				Msg("attempting waiter request")
		}
		if opts.AttemptHook != nil {
			opts.AttemptHook(attemptCtx, attempt)
		}

		start := exec.clock()
		out, err := callInvoker(exec.recoverPanics, invoke, attemptCtx, input, name)
		rec := observe.AttemptRecord{Attempt: attempt, StartTime: start, EndTime: exec.clock(), Err: err}

		var panicErr *PanicError
		if asPanic(err, &panicErr) {
			return zero, inv.finish(ctx, rec, observe.OutcomeFailed, &Error{Kind: KindEvaluation, Waiter: name, Attempt: attempt, Err: panicErr})
		}

		// The invocation context ending wins over whatever the attempt returned.
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, inv.finish(ctx, rec, observe.OutcomeCancelled, &Error{
				Kind: KindCancellation, Waiter: name, Attempt: attempt,
				Msg: "request cancelled while waiting", Err: ctxErr,
			})
		}

		decision, cerr := classifyAttempt(exec.recoverPanics, cl, ctx, input, out, err, name)
		rec.Decision = decision
		if cerr != nil {
			return zero, inv.finish(ctx, rec, observe.OutcomeFailed, &Error{Kind: KindEvaluation, Waiter: name, Attempt: attempt, Err: cerr})
		}

		remaining -= exec.clock().Sub(start)
		rec.Remaining = remaining

		switch decision.Kind {
		case classify.DecisionSuccess:
			return out, inv.finish(ctx, rec, observe.OutcomeSucceeded, nil)
		case classify.DecisionFailure:
			cause := decision.Err
			if cause == nil {
				cause = classify.ErrFailureState
			}
			return zero, inv.finish(ctx, rec, observe.OutcomeFailed, &Error{Kind: KindAcceptorFailure, Waiter: name, Attempt: attempt, Err: cause})
		}

		if remaining < opts.MinDelay || remaining <= 0 {
			return zero, inv.finish(ctx, rec, observe.OutcomeTimedOut, &Error{
				Kind: KindTimeout, Waiter: name, Attempt: attempt,
				Msg: fmt.Sprintf("exceeded max wait time for %s waiter", name),
			})
		}

		delay, derr := exec.ComputeDelay(attempt, opts.MinDelay, opts.MaxDelay, remaining)
		if derr != nil {
			return zero, inv.finish(ctx, rec, observe.OutcomeFailed, &Error{
				Kind: KindDelayComputation, Waiter: name, Attempt: attempt,
				Msg: "error computing waiter delay", Err: derr,
			})
		}
		rec.Delay = delay
		inv.record(ctx, rec)
		remaining -= delay

		if err := exec.sleep(ctx, delay); err != nil {
			return zero, inv.finish(ctx, observe.AttemptRecord{}, observe.OutcomeCancelled, &Error{
				Kind: KindCancellation, Waiter: name, Attempt: attempt,
				Msg: "request cancelled while waiting", Err: err,
			})
		}
	}
}

func (inv *invocation) record(ctx context.Context, rec observe.AttemptRecord) {
	inv.tl.Attempts = append(inv.tl.Attempts, rec)
	inv.exec.observer.OnAttempt(ctx, inv.spec.Key, rec)
}

// finish records the last attempt, if any, and publishes the timeline. It
// returns err unchanged.
func (inv *invocation) finish(ctx context.Context, rec observe.AttemptRecord, outcome observe.Outcome, err error) error {
	if rec.Attempt > 0 {
		inv.record(ctx, rec)
	}
	inv.tl.End = inv.exec.clock()
	inv.tl.Outcome = outcome
	inv.tl.FinalErr = err

	if outcome == observe.OutcomeSucceeded {
		inv.exec.observer.OnSuccess(ctx, inv.spec.Key, inv.tl)
	} else {
		inv.exec.observer.OnFailure(ctx, inv.spec.Key, inv.tl)
	}
	if inv.capture != nil {
		tl := inv.tl
		observe.StoreTimelineCapture(inv.capture, &tl)
	}
	return err
}

func callInvoker[In, Out any](recoverPanics bool, invoke Invoker[In, Out], ctx context.Context, input In, name string) (out Out, err error) {
	if recoverPanics {
		defer func() {
			if r := recover(); r != nil {
				err = &PanicError{Component: "invoker", Waiter: name, Value: r, Stack: debug.Stack()}
			}
		}()
	}
	return invoke(ctx, input)
}

func classifyAttempt(recoverPanics bool, cl classify.Classifier, ctx context.Context, input, output any, err error, name string) (d classify.Decision, cerr error) {
	if recoverPanics {
		defer func() {
			if r := recover(); r != nil {
				d = classify.Decision{Acceptor: -1}
				cerr = &PanicError{Component: "classifier", Waiter: name, Value: r, Stack: debug.Stack()}
			}
		}()
	}
	return cl.Classify(ctx, input, output, err)
}

// asPanic reports whether err is a PanicError produced by callInvoker. An
// invoker that returns a *PanicError of its own is treated the same way.
func asPanic(err error, target **PanicError) bool {
	pe, ok := err.(*PanicError)
	if ok {
		*target = pe
	}
	return ok
}

func resolveExecutor(exec *Executor) *Executor {
	if exec == nil {
		return DefaultExecutor()
	}
	if !exec.ready() {
		return NewExecutorFromOptions(ExecutorOptions{
			Provider:      exec.provider,
			Observer:      exec.observer,
			Paths:         exec.paths,
			ErrorTypes:    exec.errorTypes,
			Codes:         exec.codes,
			Clock:         exec.clock,
			Sleep:         exec.sleep,
			Jitter:        exec.jitter,
			Logger:        &exec.logger,
			RecoverPanics: exec.recoverPanics,
		})
	}
	return exec
}
