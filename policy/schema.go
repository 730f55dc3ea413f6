package policy

import (
	"fmt"
	"strings"
	"time"
)

// State is the terminal state an acceptor transitions the waiter into.
type State string

const (
	StateSuccess State = "success"
	StateFailure State = "failure"
	StateRetry   State = "retry"
)

// Valid reports whether s is one of the known states.
func (s State) Valid() bool {
	switch s {
	case StateSuccess, StateFailure, StateRetry:
		return true
	default:
		return false
	}
}

// Comparator selects how a queried value is compared to an expected string.
type Comparator string

const (
	StringEquals    Comparator = "stringEquals"
	BooleanEquals   Comparator = "booleanEquals"
	AllStringEquals Comparator = "allStringEquals"
	AnyStringEquals Comparator = "anyStringEquals"
)

// Valid reports whether c is one of the known comparators.
func (c Comparator) Valid() bool {
	switch c {
	case StringEquals, BooleanEquals, AllStringEquals, AnyStringEquals:
		return true
	default:
		return false
	}
}

// MatcherKind enumerates the matcher variants.
type MatcherKind int

const (
	MatcherUnknown MatcherKind = iota
	MatcherOutput
	MatcherInputOutput
	MatcherSuccess
	MatcherErrorType
)

func (k MatcherKind) String() string {
	switch k {
	case MatcherOutput:
		return "output"
	case MatcherInputOutput:
		return "inputOutput"
	case MatcherSuccess:
		return "success"
	case MatcherErrorType:
		return "errorType"
	default:
		return "unknown"
	}
}

// Matcher is the condition of an acceptor.
//
// The set of implementations is closed: OutputMatcher, InputOutputMatcher,
// SuccessMatcher and ErrorTypeMatcher. Consumers switch on the concrete type.
type Matcher interface {
	Kind() MatcherKind
	matcher()
}

// OutputMatcher queries the operation output. It only applies to attempts
// that returned no error.
type OutputMatcher struct {
	Path       string     `json:"path"`
	Expected   string     `json:"expected"`
	Comparator Comparator `json:"comparator"`
}

// InputOutputMatcher queries a document with the operation input and output
// under the "input" and "output" fields. It only applies to attempts that
// returned no error.
type InputOutputMatcher struct {
	Path       string     `json:"path"`
	Expected   string     `json:"expected"`
	Comparator Comparator `json:"comparator"`
}

// SuccessMatcher matches every attempt that returned no error.
type SuccessMatcher struct{}

// ErrorTypeMatcher matches attempts whose error has the given modeled type
// name or error code.
type ErrorTypeMatcher struct {
	ErrorType string `json:"errorType"`
}

func (OutputMatcher) Kind() MatcherKind      { return MatcherOutput }
func (InputOutputMatcher) Kind() MatcherKind { return MatcherInputOutput }
func (SuccessMatcher) Kind() MatcherKind     { return MatcherSuccess }
func (ErrorTypeMatcher) Kind() MatcherKind   { return MatcherErrorType }

func (OutputMatcher) matcher()      {}
func (InputOutputMatcher) matcher() {}
func (SuccessMatcher) matcher()     {}
func (ErrorTypeMatcher) matcher()   {}

// Acceptor pairs a matcher with the state entered when it matches.
type Acceptor struct {
	State   State   `json:"state"`
	Matcher Matcher `json:"-"`
}

func (a Acceptor) String() string {
	switch m := a.Matcher.(type) {
	case OutputMatcher:
		return fmt.Sprintf("%s on output %s %s %q", a.State, m.Path, m.Comparator, m.Expected)
	case InputOutputMatcher:
		return fmt.Sprintf("%s on inputOutput %s %s %q", a.State, m.Path, m.Comparator, m.Expected)
	case SuccessMatcher:
		return fmt.Sprintf("%s on success", a.State)
	case ErrorTypeMatcher:
		return fmt.Sprintf("%s on errorType %s", a.State, m.ErrorType)
	default:
		return fmt.Sprintf("%s on <nil>", a.State)
	}
}

type SpecSource string

const (
	SpecSourceUnknown SpecSource = "unknown"
	SpecSourceStatic  SpecSource = "static"
	SpecSourceFile    SpecSource = "file"
	SpecSourceRemote  SpecSource = "remote"
)

type NormalizationInfo struct {
	Changed       bool     `json:"-"`
	ChangedFields []string `json:"-"`
}

type Metadata struct {
	Source        SpecSource        `json:"-"`
	Origin        string            `json:"-"`
	Normalization NormalizationInfo `json:"-"`
}

// WaiterSpec is the named, immutable configuration of one awaited condition.
//
// Acceptors are evaluated in order and the first match wins. A normalized
// spec must not be mutated; it is shared by every invocation that uses it.
type WaiterSpec struct {
	Key           Key           `json:"key"`
	Documentation string        `json:"documentation,omitempty"`
	MinDelay      time.Duration `json:"min_delay"`
	MaxDelay      time.Duration `json:"max_delay"`
	Acceptors     []Acceptor    `json:"acceptors"`

	Meta Metadata `json:"-"`
}

// Name returns the display name used in errors and logs.
func (s WaiterSpec) Name() string {
	if s.Key.Name != "" {
		return s.Key.Name
	}
	return s.Key.String()
}

const (
	// DefaultMinDelay is applied when a spec leaves MinDelay unset.
	DefaultMinDelay = 2 * time.Second
	// DefaultMaxDelay is applied when a spec leaves MaxDelay unset.
	DefaultMaxDelay = 120 * time.Second
)

// Normalize applies delay defaults and validates the spec.
//
// The returned spec owns a private copy of the acceptor list. Fundamentally
// invalid specs yield a *NormalizeError and a zero WaiterSpec.
func (s WaiterSpec) Normalize() (WaiterSpec, error) {
	normalized := s
	norm := &normalized.Meta.Normalization

	markChanged := func(field string) {
		norm.Changed = true
		for _, f := range norm.ChangedFields {
			if f == field {
				return
			}
		}
		norm.ChangedFields = append(norm.ChangedFields, field)
	}

	if strings.TrimSpace(normalized.Key.Name) == "" {
		return WaiterSpec{}, &NormalizeError{Field: "name", Value: normalized.Key.String()}
	}

	if normalized.MinDelay < 0 {
		return WaiterSpec{}, &NormalizeError{Field: "min_delay", Value: normalized.MinDelay.String()}
	}
	if normalized.MaxDelay < 0 {
		return WaiterSpec{}, &NormalizeError{Field: "max_delay", Value: normalized.MaxDelay.String()}
	}
	if normalized.MinDelay == 0 {
		normalized.MinDelay = DefaultMinDelay
		markChanged("min_delay")
	}
	if normalized.MaxDelay == 0 {
		normalized.MaxDelay = DefaultMaxDelay
		markChanged("max_delay")
	}
	if normalized.MinDelay > normalized.MaxDelay {
		return WaiterSpec{}, &NormalizeError{
			Field: "min_delay",
			Value: fmt.Sprintf("%v > max_delay %v", normalized.MinDelay, normalized.MaxDelay),
		}
	}

	if len(normalized.Acceptors) == 0 {
		return WaiterSpec{}, &NormalizeError{Field: "acceptors", Value: "[]"}
	}
	acceptors := make([]Acceptor, len(normalized.Acceptors))
	copy(acceptors, normalized.Acceptors)
	for i, a := range acceptors {
		if err := validateAcceptor(i, a); err != nil {
			return WaiterSpec{}, err
		}
	}
	normalized.Acceptors = acceptors

	if normalized.Meta.Source == "" {
		normalized.Meta.Source = SpecSourceUnknown
	}

	return normalized, nil
}

func validateAcceptor(i int, a Acceptor) error {
	field := func(name string) string {
		return fmt.Sprintf("acceptors[%d].%s", i, name)
	}

	if !a.State.Valid() {
		return &NormalizeError{Field: field("state"), Value: string(a.State)}
	}

	switch m := a.Matcher.(type) {
	case OutputMatcher:
		return validatePath(field("matcher.output"), m.Path, m.Comparator)
	case InputOutputMatcher:
		return validatePath(field("matcher.inputOutput"), m.Path, m.Comparator)
	case SuccessMatcher:
		return nil
	case ErrorTypeMatcher:
		if strings.TrimSpace(m.ErrorType) == "" {
			return &NormalizeError{Field: field("matcher.errorType"), Value: m.ErrorType}
		}
		return nil
	case nil:
		return &NormalizeError{Field: field("matcher"), Value: "<nil>"}
	default:
		return &NormalizeError{Field: field("matcher"), Value: fmt.Sprintf("%T", m)}
	}
}

func validatePath(field, path string, cmp Comparator) error {
	if strings.TrimSpace(path) == "" {
		return &NormalizeError{Field: field + ".path", Value: path}
	}
	if !cmp.Valid() {
		return &NormalizeError{Field: field + ".comparator", Value: string(cmp)}
	}
	return nil
}
