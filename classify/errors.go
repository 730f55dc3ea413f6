package classify

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/aponysus/await/policy"
)

// ErrFailureState is the error carried by a decision produced by an acceptor
// in the failure state.
var ErrFailureState = errors.New("waiter state transitioned to Failure")

// EvaluationError reports that an acceptor could not be evaluated. It is an
// internal error, never a non-match.
type EvaluationError struct {
	Acceptor int
	Matcher  policy.MatcherKind
	Err      error
}

func (e *EvaluationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("await: evaluating acceptor %d (%s): %v", e.Acceptor, e.Matcher, e.Err)
}

func (e *EvaluationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// APIError is a classify-owned interface that lets errorType acceptors match
// runtime error codes without importing transport packages.
type APIError interface {
	error
	ErrorCode() string
}

// CodeExtractor derives a runtime error code from an error. ok is false when
// the extractor does not recognize the error.
type CodeExtractor interface {
	ErrorCode(err error) (code string, ok bool)
}

// CodeExtractorFunc adapts a function to CodeExtractor.
type CodeExtractorFunc func(err error) (string, bool)

func (f CodeExtractorFunc) ErrorCode(err error) (string, bool) { return f(err) }

// APICodes extracts the code of the first APIError in the error chain.
var APICodes CodeExtractor = CodeExtractorFunc(func(err error) (string, bool) {
	var ae APIError
	if errors.As(err, &ae) {
		return ae.ErrorCode(), true
	}
	return "", false
})

func typeString(v any) string {
	t := reflect.TypeOf(v)
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
