package waiter

import (
	"errors"
	"fmt"

	"github.com/aponysus/await/policy"
)

// Kind classifies why a wait ended unsuccessfully.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation: the options or the spec were invalid; the operation was
	// never invoked.
	KindValidation
	// KindAcceptorFailure: an acceptor matched in the failure state, or an
	// attempt error matched no acceptor.
	KindAcceptorFailure
	// KindDelayComputation: the next delay could not be computed.
	KindDelayComputation
	// KindTimeout: the wait budget ran out between attempts.
	KindTimeout
	// KindCancellation: the context ended during an attempt or a sleep.
	KindCancellation
	// KindEvaluation: an acceptor or a custom classifier failed to evaluate.
	KindEvaluation
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAcceptorFailure:
		return "acceptor_failure"
	case KindDelayComputation:
		return "delay_computation"
	case KindTimeout:
		return "timeout"
	case KindCancellation:
		return "cancellation"
	case KindEvaluation:
		return "evaluation"
	default:
		return "unknown"
	}
}

var (
	ErrValidation       = errors.New("await: invalid waiter configuration")
	ErrAcceptorFailure  = errors.New("await: waiter reached a failure state")
	ErrDelayComputation = errors.New("await: error computing waiter delay")
	ErrTimeout          = errors.New("await: exceeded max wait time")
	ErrCancelled        = errors.New("await: request cancelled while waiting")
	ErrEvaluation       = errors.New("await: waiter evaluation failed")

	// ErrNoSpec is matched by *NoSpecError.
	ErrNoSpec = errors.New("await: no waiter spec found")
)

func (k Kind) sentinel() error {
	switch k {
	case KindValidation:
		return ErrValidation
	case KindAcceptorFailure:
		return ErrAcceptorFailure
	case KindDelayComputation:
		return ErrDelayComputation
	case KindTimeout:
		return ErrTimeout
	case KindCancellation:
		return ErrCancelled
	case KindEvaluation:
		return ErrEvaluation
	default:
		return nil
	}
}

// Error is returned by every unsuccessful wait.
//
// Errors.Is matches the sentinel of its Kind; Unwrap exposes the cause
// (invoker error, context error, *classify.EvaluationError, ...).
type Error struct {
	Kind    Kind
	Waiter  string
	Attempt int64
	Msg     string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	switch {
	case e.Msg != "" && e.Err != nil:
		return e.Msg + ", " + e.Err.Error()
	case e.Msg != "":
		return e.Msg
	case e.Err != nil:
		return e.Err.Error()
	default:
		return fmt.Sprintf("await: %s waiter ended with %s", e.Waiter, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *Error) Is(target error) bool {
	if e == nil || target == nil {
		return false
	}
	return target == e.Kind.sentinel()
}

// KindOf reports the Kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var we *Error
	if errors.As(err, &we) {
		return we.Kind
	}
	return KindUnknown
}

// NoSpecError reports that no spec could be resolved for a key.
type NoSpecError struct {
	Key policy.Key
	Err error
}

func (e *NoSpecError) Error() string {
	return fmt.Sprintf("await: waiter spec not found for %s: %v", e.Key, e.Err)
}

func (e *NoSpecError) Unwrap() error {
	return e.Err
}

func (e *NoSpecError) Is(target error) bool {
	return target == ErrNoSpec
}

// PanicError wraps a value recovered from a panic in user code.
type PanicError struct {
	Component string
	Waiter    string
	Value     any
	Stack     []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("await: panic in %s for %s waiter: %v", e.Component, e.Waiter, e.Value)
}
