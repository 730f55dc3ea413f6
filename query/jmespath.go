// Package query provides the JMESPath implementation of
// classify.PathEvaluator.
package query

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jmespath/go-jmespath"

	"github.com/aponysus/await/classify"
)

// JMESPath evaluates JMESPath expressions. Compiled expressions are cached
// and the evaluator is safe for concurrent use.
//
// Documents that are not entirely plain JSON values are normalized through
// encoding/json first, so struct fields are addressed by their JSON names at
// any depth.
type JMESPath struct {
	cache sync.Map // string -> *jmespath.JMESPath
}

// New returns an empty evaluator.
func New() *JMESPath { return &JMESPath{} }

// Default is shared by callers that do not need their own cache.
var Default = New()

var _ classify.PathEvaluator = (*JMESPath)(nil)

func (j *JMESPath) Evaluate(expression string, document any) (classify.Value, error) {
	compiled, err := j.compile(expression)
	if err != nil {
		return classify.Null, err
	}

	doc, err := normalize(document)
	if err != nil {
		return classify.Null, err
	}

	result, err := compiled.Search(doc)
	if err != nil {
		return classify.Null, fmt.Errorf("search %q: %w", expression, err)
	}
	return classify.ValueOf(result), nil
}

// Compile checks an expression and caches it.
func (j *JMESPath) Compile(expression string) error {
	_, err := j.compile(expression)
	return err
}

func (j *JMESPath) compile(expression string) (*jmespath.JMESPath, error) {
	if c, ok := j.cache.Load(expression); ok {
		return c.(*jmespath.JMESPath), nil
	}
	compiled, err := jmespath.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expression, err)
	}
	actual, _ := j.cache.LoadOrStore(expression, compiled)
	return actual.(*jmespath.JMESPath), nil
}

func normalize(document any) (any, error) {
	if isPlain(document) {
		return document, nil
	}

	b, err := json.Marshal(document)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	return out, nil
}

// isPlain reports whether v is made only of the types encoding/json decodes
// into. Anything else nested inside, such as a struct or a typed map, needs
// the round trip.
func isPlain(v any) bool {
	switch v := v.(type) {
	case nil, string, bool, float64:
		return true
	case map[string]any:
		for _, e := range v {
			if !isPlain(e) {
				return false
			}
		}
		return true
	case []any:
		for _, e := range v {
			if !isPlain(e) {
				return false
			}
		}
		return true
	}
	return false
}
