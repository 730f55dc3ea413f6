package classify

import (
	"errors"
	"reflect"
	"strings"
	"sync"
)

// ErrorTypes is a thread-safe registry of modeled error types, keyed by
// case-insensitive name.
type ErrorTypes struct {
	mu sync.RWMutex
	m  map[string]func(error) bool
}

func NewErrorTypes() *ErrorTypes {
	return &ErrorTypes{m: make(map[string]func(error) bool)}
}

// DefaultErrorTypes is consulted by evaluators that do not carry their own
// registry.
var DefaultErrorTypes = NewErrorTypes()

// Register associates name with a predicate reporting whether an error is of
// that type. Empty names and nil predicates are ignored.
func (r *ErrorTypes) Register(name string, is func(error) bool) {
	if r == nil {
		return
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || is == nil {
		return
	}

	r.mu.Lock()
	if r.m == nil {
		r.m = make(map[string]func(error) bool)
	}
	r.m[name] = is
	r.mu.Unlock()
}

// Lookup returns the predicate registered under name, ignoring case.
func (r *ErrorTypes) Lookup(name string) (func(error) bool, bool) {
	if r == nil {
		return nil, false
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return nil, false
	}

	r.mu.RLock()
	is, ok := r.m[name]
	r.mu.RUnlock()
	return is, ok && is != nil
}

// RegisterErrorType registers T as a modeled error type. An empty name uses
// the type name, without package or pointer prefix.
func RegisterErrorType[T error](r *ErrorTypes, name string) {
	if strings.TrimSpace(name) == "" {
		t := reflect.TypeFor[T]()
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		name = t.Name()
	}
	r.Register(name, func(err error) bool {
		var target T
		return errors.As(err, &target)
	})
}
