package classify

import (
	"fmt"
	"strconv"

	"github.com/aponysus/await/policy"
)

// Compare applies cmp to a queried value and an expected literal.
//
// A false result means no match. An error means the value or the literal
// cannot be compared at all, which callers must not treat as a non-match.
func Compare(cmp policy.Comparator, v Value, expected string) (bool, error) {
	switch cmp {
	case policy.StringEquals:
		s, ok := v.Text()
		if !ok {
			return false, fmt.Errorf("stringEquals cannot compare %s value", v.Kind)
		}
		return s == expected, nil

	case policy.BooleanEquals:
		want, err := strconv.ParseBool(expected)
		if err != nil {
			return false, fmt.Errorf("booleanEquals expected value %q is not a boolean", expected)
		}
		switch v.Kind {
		case KindNull:
			return false, nil
		case KindBool:
			got, _ := v.Raw.(bool)
			return got == want, nil
		default:
			return false, fmt.Errorf("booleanEquals expected bool value, got %s", v.Kind)
		}

	case policy.AllStringEquals, policy.AnyStringEquals:
		if v.Kind == KindNull {
			return false, nil
		}
		items, ok := v.Items()
		if !ok {
			return false, fmt.Errorf("%s expected list value, got %s", cmp, v.Kind)
		}
		if len(items) == 0 {
			return false, nil
		}
		all := cmp == policy.AllStringEquals
		for i, item := range items {
			s, ok := item.Text()
			if !ok {
				return false, fmt.Errorf("%s cannot compare %s element at index %d", cmp, item.Kind, i)
			}
			if all && s != expected {
				return false, nil
			}
			if !all && s == expected {
				return true, nil
			}
		}
		return all, nil

	default:
		return false, fmt.Errorf("unknown comparator %q", cmp)
	}
}
