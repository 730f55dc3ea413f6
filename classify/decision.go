package classify

import "context"

// DecisionKind is the verdict on a single attempt.
type DecisionKind int

const (
	// DecisionUnknown means the classifier has no opinion. Chain moves on to
	// the next classifier; the waiter loop treats it as retry.
	DecisionUnknown DecisionKind = iota
	DecisionSuccess
	DecisionFailure
	DecisionRetry
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionSuccess:
		return "success"
	case DecisionFailure:
		return "failure"
	case DecisionRetry:
		return "retry"
	default:
		return "unknown"
	}
}

// Decision describes the classification of an attempt.
type Decision struct {
	Kind DecisionKind
	// Err is set for DecisionFailure.
	Err    error
	Reason string
	// Acceptor is the index of the matching acceptor, or -1.
	Acceptor int
}

// Classifier decides what an attempt means for the waiter.
//
// input is the waiter input, output and err are what the invoker returned.
// A returned error aborts the wait; it is not the same as DecisionFailure.
type Classifier interface {
	Classify(ctx context.Context, input, output any, err error) (Decision, error)
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(ctx context.Context, input, output any, err error) (Decision, error)

func (f ClassifierFunc) Classify(ctx context.Context, input, output any, err error) (Decision, error) {
	return f(ctx, input, output, err)
}

// Chain consults classifiers in order and returns the first decision that is
// not DecisionUnknown. Nil entries are skipped.
type Chain []Classifier

func (c Chain) Classify(ctx context.Context, input, output any, err error) (Decision, error) {
	for _, cl := range c {
		if cl == nil {
			continue
		}
		d, cerr := cl.Classify(ctx, input, output, err)
		if cerr != nil {
			return Decision{}, cerr
		}
		if d.Kind != DecisionUnknown {
			return d, nil
		}
	}
	return Decision{Kind: DecisionUnknown, Acceptor: -1}, nil
}

// RetryableFunc is the shape of a caller-supplied retry predicate. true
// polls again, false ends the wait successfully and a non-nil error ends it
// in failure with that error.
type RetryableFunc func(ctx context.Context, input, output any, err error) (bool, error)

// Retryable adapts a predicate to a Classifier.
func Retryable(f RetryableFunc) Classifier {
	return ClassifierFunc(func(ctx context.Context, input, output any, err error) (Decision, error) {
		retry, ferr := f(ctx, input, output, err)
		switch {
		case ferr != nil:
			return Decision{Kind: DecisionFailure, Err: ferr, Reason: "retryable_error", Acceptor: -1}, nil
		case retry:
			return Decision{Kind: DecisionRetry, Reason: "retryable", Acceptor: -1}, nil
		default:
			return Decision{Kind: DecisionSuccess, Reason: "not_retryable", Acceptor: -1}, nil
		}
	})
}
