package policy

import "time"

// Option mutates a spec under construction.
type Option func(*WaiterSpec)

// New builds and normalizes a spec for a "namespace.name" key.
func New(key string, opts ...Option) (WaiterSpec, error) {
	return NewFromKey(ParseKey(key), opts...)
}

// NewFromKey builds and normalizes a spec for a structured key.
func NewFromKey(key Key, opts ...Option) (WaiterSpec, error) {
	s := WaiterSpec{
		Key:  key,
		Meta: Metadata{Source: SpecSourceStatic},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&s)
		}
	}
	return s.Normalize()
}

// MustNew is like New but panics on an invalid spec. It is meant for
// package-level spec declarations.
func MustNew(key string, opts ...Option) WaiterSpec {
	s, err := New(key, opts...)
	if err != nil {
		panic(err)
	}
	return s
}

func MinDelay(d time.Duration) Option {
	return func(s *WaiterSpec) { s.MinDelay = d }
}

func MaxDelay(d time.Duration) Option {
	return func(s *WaiterSpec) { s.MaxDelay = d }
}

// Delays sets both delay bounds.
func Delays(minDelay, maxDelay time.Duration) Option {
	return func(s *WaiterSpec) {
		s.MinDelay = minDelay
		s.MaxDelay = maxDelay
	}
}

func Documentation(doc string) Option {
	return func(s *WaiterSpec) { s.Documentation = doc }
}

// Accept appends an acceptor. Acceptors keep the order in which they are added.
func Accept(state State, m Matcher) Option {
	return func(s *WaiterSpec) {
		s.Acceptors = append(s.Acceptors, Acceptor{State: state, Matcher: m})
	}
}

func SucceedWhen(m Matcher) Option { return Accept(StateSuccess, m) }
func FailWhen(m Matcher) Option    { return Accept(StateFailure, m) }
func RetryWhen(m Matcher) Option   { return Accept(StateRetry, m) }

// Output is shorthand for an OutputMatcher.
func Output(path string, cmp Comparator, expected string) OutputMatcher {
	return OutputMatcher{Path: path, Expected: expected, Comparator: cmp}
}

// InputOutput is shorthand for an InputOutputMatcher.
func InputOutput(path string, cmp Comparator, expected string) InputOutputMatcher {
	return InputOutputMatcher{Path: path, Expected: expected, Comparator: cmp}
}

// ErrorType is shorthand for an ErrorTypeMatcher.
func ErrorType(name string) ErrorTypeMatcher {
	return ErrorTypeMatcher{ErrorType: name}
}

// Success is shorthand for a SuccessMatcher.
func Success() SuccessMatcher {
	return SuccessMatcher{}
}
