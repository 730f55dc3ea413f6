package classify

import (
	"context"
	"errors"
	"fmt"

	"github.com/aponysus/await/policy"
)

// Evaluator classifies attempts by walking a spec's acceptors in order.
//
// Output, InputOutput and Success matchers apply only to attempts without
// error; ErrorType matchers apply only to attempts with one. The first
// applicable matcher that matches decides. When nothing matches, an attempt
// error becomes a failure carrying that same error and an attempt without
// error is retried.
type Evaluator struct {
	Acceptors []policy.Acceptor

	// Paths evaluates output and inputOutput paths. Required only when such
	// matchers are present.
	Paths PathEvaluator

	// ErrorTypes resolves modeled error names. Nil uses DefaultErrorTypes.
	ErrorTypes *ErrorTypes

	// Codes extract runtime error codes, tried in order. Nil uses APICodes.
	Codes []CodeExtractor
}

// NewEvaluator returns an evaluator over the acceptors of s.
func NewEvaluator(s policy.WaiterSpec, paths PathEvaluator) *Evaluator {
	return &Evaluator{Acceptors: s.Acceptors, Paths: paths}
}

func (e *Evaluator) Classify(_ context.Context, input, output any, err error) (Decision, error) {
	for i, a := range e.Acceptors {
		matched, merr := e.match(a.Matcher, input, output, err)
		if merr != nil {
			kind := policy.MatcherUnknown
			if a.Matcher != nil {
				kind = a.Matcher.Kind()
			}
			return Decision{}, &EvaluationError{Acceptor: i, Matcher: kind, Err: merr}
		}
		if !matched {
			continue
		}

		switch a.State {
		case policy.StateSuccess:
			return Decision{Kind: DecisionSuccess, Reason: a.String(), Acceptor: i}, nil
		case policy.StateFailure:
			return Decision{Kind: DecisionFailure, Err: ErrFailureState, Reason: a.String(), Acceptor: i}, nil
		case policy.StateRetry:
			return Decision{Kind: DecisionRetry, Reason: a.String(), Acceptor: i}, nil
		default:
			return Decision{}, &EvaluationError{Acceptor: i, Matcher: a.Matcher.Kind(), Err: fmt.Errorf("unknown state %q", a.State)}
		}
	}

	if err != nil {
		return Decision{Kind: DecisionFailure, Err: err, Reason: "unmatched_error", Acceptor: -1}, nil
	}
	return Decision{Kind: DecisionRetry, Reason: "no_match", Acceptor: -1}, nil
}

func (e *Evaluator) match(m policy.Matcher, input, output any, err error) (bool, error) {
	switch m := m.(type) {
	case policy.OutputMatcher:
		if err != nil {
			return false, nil
		}
		return e.matchPath(m.Path, m.Comparator, m.Expected, output)
	case policy.InputOutputMatcher:
		if err != nil {
			return false, nil
		}
		doc := map[string]any{"input": input, "output": output}
		return e.matchPath(m.Path, m.Comparator, m.Expected, doc)
	case policy.SuccessMatcher:
		return err == nil, nil
	case policy.ErrorTypeMatcher:
		if err == nil {
			return false, nil
		}
		return e.matchErrorType(m.ErrorType, err)
	case nil:
		return false, errors.New("nil matcher")
	default:
		return false, fmt.Errorf("unsupported matcher %s", typeString(m))
	}
}

func (e *Evaluator) matchPath(expr string, cmp policy.Comparator, expected string, doc any) (bool, error) {
	if e.Paths == nil {
		return false, errors.New("no path evaluator configured")
	}
	v, err := e.Paths.Evaluate(expr, doc)
	if err != nil {
		return false, fmt.Errorf("evaluating %q: %w", expr, err)
	}
	return Compare(cmp, v, expected)
}

func (e *Evaluator) matchErrorType(name string, err error) (bool, error) {
	types := e.ErrorTypes
	if types == nil {
		types = DefaultErrorTypes
	}
	if is, ok := types.Lookup(name); ok {
		return is(err), nil
	}

	codes := e.Codes
	if codes == nil {
		codes = []CodeExtractor{APICodes}
	}
	for _, c := range codes {
		if c == nil {
			continue
		}
		if code, ok := c.ErrorCode(err); ok {
			return code == name, nil
		}
	}
	return false, fmt.Errorf("expected err to implement classify.APIError, got %s", typeString(err))
}
