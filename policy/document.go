package policy

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Document is the serialized form of a set of waiter specs, as found in YAML,
// JSON or CUE files.
//
//	namespace: ec2
//	waiters:
//	  - name: InstanceRunning
//	    minDelay: 15s
//	    maxDelay: 120
//	    acceptors:
//	      - state: success
//	        matcher:
//	          output:
//	            path: Reservations[].Instances[].State.Name
//	            expected: running
//	            comparator: allStringEquals
//	      - state: retry
//	        matcher:
//	          errorType: InvalidInstanceID.NotFound
type Document struct {
	Namespace string           `yaml:"namespace,omitempty" json:"namespace,omitempty"`
	Waiters   []WaiterDocument `yaml:"waiters" json:"waiters" validate:"required,min=1,dive"`
}

type WaiterDocument struct {
	Name          string             `yaml:"name" json:"name" validate:"required"`
	Documentation string             `yaml:"documentation,omitempty" json:"documentation,omitempty"`
	MinDelay      Duration           `yaml:"minDelay,omitempty" json:"minDelay,omitempty" validate:"gte=0"`
	MaxDelay      Duration           `yaml:"maxDelay,omitempty" json:"maxDelay,omitempty" validate:"gte=0"`
	Acceptors     []AcceptorDocument `yaml:"acceptors" json:"acceptors" validate:"required,min=1,dive"`
}

type AcceptorDocument struct {
	State   string          `yaml:"state" json:"state" validate:"required,oneof=success failure retry"`
	Matcher MatcherDocument `yaml:"matcher" json:"matcher"`
}

// MatcherDocument is a union: exactly one member must be set.
type MatcherDocument struct {
	Output      *PathMatcherDocument `yaml:"output,omitempty" json:"output,omitempty"`
	InputOutput *PathMatcherDocument `yaml:"inputOutput,omitempty" json:"inputOutput,omitempty"`
	Success     *bool                `yaml:"success,omitempty" json:"success,omitempty"`
	ErrorType   string               `yaml:"errorType,omitempty" json:"errorType,omitempty"`
}

type PathMatcherDocument struct {
	Path       string `yaml:"path" json:"path" validate:"required"`
	Expected   string `yaml:"expected" json:"expected"`
	Comparator string `yaml:"comparator" json:"comparator" validate:"required,oneof=stringEquals booleanEquals allStringEquals anyStringEquals"`
}

// Duration accepts a Go duration string ("15s") or a number of seconds.
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := parseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*d = parsed
	return nil
}

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*d = 0
		return nil
	}
	raw := string(data)
	if strings.HasPrefix(raw, `"`) {
		unquoted, err := strconv.Unquote(raw)
		if err != nil {
			return err
		}
		raw = unquoted
	}
	parsed, err := parseDuration(raw)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func parseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		return Duration(secs * float64(time.Second)), nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return Duration(d), nil
}

var documentValidator = newDocumentValidator()

func newDocumentValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(validateMatcherDocument, MatcherDocument{})
	return v
}

func validateMatcherDocument(sl validator.StructLevel) {
	m := sl.Current().Interface().(MatcherDocument)

	set := 0
	if m.Output != nil {
		set++
	}
	if m.InputOutput != nil {
		set++
	}
	if m.Success != nil {
		set++
	}
	if m.ErrorType != "" {
		set++
	}
	if set != 1 {
		sl.ReportError(m, "Matcher", "matcher", "exactly_one_member", strconv.Itoa(set))
	}
	if m.Success != nil && !*m.Success {
		sl.ReportError(m.Success, "Success", "success", "eq_true", "false")
	}
}

// ErrInvalidDocument wraps every document validation failure.
var ErrInvalidDocument = errors.New("await: invalid waiter document")

// Validate checks the document structure.
func (d Document) Validate() error {
	if err := documentValidator.Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return nil
}

// Specs validates the document and converts every waiter into a normalized
// spec tagged with source.
func (d Document) Specs(source SpecSource, origin string) ([]WaiterSpec, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}

	specs := make([]WaiterSpec, 0, len(d.Waiters))
	seen := make(map[Key]struct{}, len(d.Waiters))
	for _, w := range d.Waiters {
		key := Key{Namespace: strings.TrimSpace(d.Namespace), Name: strings.TrimSpace(w.Name)}
		if d.Namespace == "" {
			key = ParseKey(w.Name)
		}
		if _, dup := seen[key]; dup {
			return nil, fmt.Errorf("%w: duplicate waiter %q", ErrInvalidDocument, key.String())
		}
		seen[key] = struct{}{}

		s := WaiterSpec{
			Key:           key,
			Documentation: w.Documentation,
			MinDelay:      w.MinDelay.Std(),
			MaxDelay:      w.MaxDelay.Std(),
			Acceptors:     make([]Acceptor, 0, len(w.Acceptors)),
			Meta:          Metadata{Source: source, Origin: origin},
		}
		for _, a := range w.Acceptors {
			s.Acceptors = append(s.Acceptors, Acceptor{State: State(a.State), Matcher: a.Matcher.toMatcher()})
		}

		normalized, err := s.Normalize()
		if err != nil {
			return nil, fmt.Errorf("waiter %q: %w", key.String(), err)
		}
		specs = append(specs, normalized)
	}
	return specs, nil
}

func (m MatcherDocument) toMatcher() Matcher {
	switch {
	case m.Output != nil:
		return OutputMatcher{Path: m.Output.Path, Expected: m.Output.Expected, Comparator: Comparator(m.Output.Comparator)}
	case m.InputOutput != nil:
		return InputOutputMatcher{Path: m.InputOutput.Path, Expected: m.InputOutput.Expected, Comparator: Comparator(m.InputOutput.Comparator)}
	case m.Success != nil:
		return SuccessMatcher{}
	case m.ErrorType != "":
		return ErrorTypeMatcher{ErrorType: m.ErrorType}
	default:
		return nil
	}
}

// ParseYAML decodes a YAML document into normalized specs.
func ParseYAML(data []byte, origin string) ([]WaiterSpec, error) {
	var doc Document
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return doc.Specs(SpecSourceFile, origin)
}

// ParseJSON decodes a JSON document into normalized specs.
func ParseJSON(data []byte, origin string) ([]WaiterSpec, error) {
	var doc Document
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	return doc.Specs(SpecSourceFile, origin)
}

// ToDocument converts specs back into their serialized form. Specs with
// different namespaces keep their full key in the waiter name.
func ToDocument(specs ...WaiterSpec) Document {
	var doc Document
	for _, s := range specs {
		w := WaiterDocument{
			Name:          s.Key.String(),
			Documentation: s.Documentation,
			MinDelay:      Duration(s.MinDelay),
			MaxDelay:      Duration(s.MaxDelay),
		}
		for _, a := range s.Acceptors {
			w.Acceptors = append(w.Acceptors, AcceptorDocument{State: string(a.State), Matcher: matcherDocument(a.Matcher)})
		}
		doc.Waiters = append(doc.Waiters, w)
	}
	return doc
}

func matcherDocument(m Matcher) MatcherDocument {
	switch m := m.(type) {
	case OutputMatcher:
		return MatcherDocument{Output: &PathMatcherDocument{Path: m.Path, Expected: m.Expected, Comparator: string(m.Comparator)}}
	case InputOutputMatcher:
		return MatcherDocument{InputOutput: &PathMatcherDocument{Path: m.Path, Expected: m.Expected, Comparator: string(m.Comparator)}}
	case SuccessMatcher:
		t := true
		return MatcherDocument{Success: &t}
	case ErrorTypeMatcher:
		return MatcherDocument{ErrorType: m.ErrorType}
	default:
		return MatcherDocument{}
	}
}
