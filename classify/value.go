package classify

import (
	"fmt"
	"reflect"
	"strconv"
)

// PathEvaluator evaluates a query expression against a document. The query
// language is owned by the implementation; see package query.
type PathEvaluator interface {
	Evaluate(expression string, document any) (Value, error)
}

// PathEvaluatorFunc adapts a function to PathEvaluator.
type PathEvaluatorFunc func(expression string, document any) (Value, error)

func (f PathEvaluatorFunc) Evaluate(expression string, document any) (Value, error) {
	return f(expression, document)
}

// ValueKind is the dynamic kind of a queried value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindBool
	KindNumber
	KindList
	KindObject
)

func (k ValueKind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindList:
		return "list"
	case KindObject:
		return "object"
	default:
		return "unknown"
	}
}

// Value is the result of a path evaluation.
//
// Raw holds a canonical Go value for the kind: nil, string, bool, int64,
// uint64 or float64 for scalars, []any for lists, and the original value for
// objects.
type Value struct {
	Raw  any
	Kind ValueKind
}

// Null is the absent value.
var Null = Value{Kind: KindNull}

// ValueOf wraps an arbitrary Go value, dereferencing pointers and interfaces.
func ValueOf(raw any) Value {
	if raw == nil {
		return Null
	}
	if v, ok := raw.(Value); ok {
		return v
	}

	rv := reflect.ValueOf(raw)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return Null
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.String:
		return Value{Raw: rv.String(), Kind: KindString}
	case reflect.Bool:
		return Value{Raw: rv.Bool(), Kind: KindBool}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Value{Raw: rv.Int(), Kind: KindNumber}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Value{Raw: rv.Uint(), Kind: KindNumber}
	case reflect.Float32, reflect.Float64:
		return Value{Raw: rv.Float(), Kind: KindNumber}
	case reflect.Slice:
		if rv.IsNil() {
			return Null
		}
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return Value{Raw: string(rv.Bytes()), Kind: KindString}
		}
		return listOf(rv)
	case reflect.Array:
		return listOf(rv)
	case reflect.Map:
		if rv.IsNil() {
			return Null
		}
		return Value{Raw: rv.Interface(), Kind: KindObject}
	case reflect.Struct:
		return Value{Raw: rv.Interface(), Kind: KindObject}
	default:
		return Value{Raw: rv.Interface(), Kind: KindObject}
	}
}

func listOf(rv reflect.Value) Value {
	items := make([]any, rv.Len())
	for i := range items {
		items[i] = rv.Index(i).Interface()
	}
	return Value{Raw: items, Kind: KindList}
}

// Text renders a scalar value as a string. Null renders as "". Lists and
// objects have no string form.
func (v Value) Text() (string, bool) {
	switch v.Kind {
	case KindNull:
		return "", true
	case KindString:
		s, _ := v.Raw.(string)
		return s, true
	case KindBool:
		b, _ := v.Raw.(bool)
		return strconv.FormatBool(b), true
	case KindNumber:
		switch n := v.Raw.(type) {
		case int64:
			return strconv.FormatInt(n, 10), true
		case uint64:
			return strconv.FormatUint(n, 10), true
		case float64:
			return strconv.FormatFloat(n, 'f', -1, 64), true
		default:
			return fmt.Sprint(n), true
		}
	default:
		return "", false
	}
}

// Items returns the elements of a list value.
func (v Value) Items() ([]Value, bool) {
	if v.Kind != KindList {
		return nil, false
	}
	raw, _ := v.Raw.([]any)
	items := make([]Value, len(raw))
	for i, r := range raw {
		items[i] = ValueOf(r)
	}
	return items, true
}
