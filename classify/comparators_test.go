package classify

import (
	"testing"

	"github.com/aponysus/await/policy"
)

func TestCompare(t *testing.T) {
	str := "running"
	var nilStr *string

	cases := []struct {
		name     string
		cmp      policy.Comparator
		value    any
		expected string
		want     bool
		wantErr  bool
	}{
		{name: "string equal", cmp: policy.StringEquals, value: "ACTIVE", expected: "ACTIVE", want: true},
		{name: "string differs", cmp: policy.StringEquals, value: "CREATING", expected: "ACTIVE"},
		{name: "string pointer", cmp: policy.StringEquals, value: &str, expected: "running", want: true},
		{name: "nil pointer is empty", cmp: policy.StringEquals, value: nilStr, expected: "", want: true},
		{name: "null vs non-empty", cmp: policy.StringEquals, value: nil, expected: "x"},
		{name: "number stringified", cmp: policy.StringEquals, value: float64(10), expected: "10", want: true},
		{name: "int stringified", cmp: policy.StringEquals, value: 3, expected: "3", want: true},
		{name: "bool stringified", cmp: policy.StringEquals, value: true, expected: "true", want: true},
		{name: "object for string", cmp: policy.StringEquals, value: map[string]any{}, expected: "x", wantErr: true},

		{name: "bool true", cmp: policy.BooleanEquals, value: true, expected: "true", want: true},
		{name: "bool false", cmp: policy.BooleanEquals, value: false, expected: "true"},
		{name: "bool null", cmp: policy.BooleanEquals, value: nil, expected: "false"},
		{name: "bool bad literal", cmp: policy.BooleanEquals, value: true, expected: "maybe", wantErr: true},
		{name: "bool on string", cmp: policy.BooleanEquals, value: "true", expected: "true", wantErr: true},

		{name: "all equal", cmp: policy.AllStringEquals, value: []string{"running", "running"}, expected: "running", want: true},
		{name: "all one differs", cmp: policy.AllStringEquals, value: []string{"running", "pending"}, expected: "running"},
		{name: "all empty", cmp: policy.AllStringEquals, value: []string{}, expected: "running"},
		{name: "all null", cmp: policy.AllStringEquals, value: nil, expected: "running"},
		{name: "all pointers", cmp: policy.AllStringEquals, value: []*string{&str}, expected: "running", want: true},
		{name: "all scalar", cmp: policy.AllStringEquals, value: "running", expected: "running", wantErr: true},

		{name: "any one", cmp: policy.AnyStringEquals, value: []any{"pending", "failed"}, expected: "failed", want: true},
		{name: "any none", cmp: policy.AnyStringEquals, value: []any{"pending"}, expected: "failed"},
		{name: "any empty", cmp: policy.AnyStringEquals, value: []any{}, expected: "failed"},
		{name: "any nested list", cmp: policy.AnyStringEquals, value: []any{[]any{"failed"}}, expected: "failed", wantErr: true},

		{name: "unknown comparator", cmp: "numberEquals", value: 1, expected: "1", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Compare(tc.cmp, ValueOf(tc.value), tc.expected)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got match=%v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("match=%v, want %v", got, tc.want)
			}
		})
	}
}

func TestValueOf_Kinds(t *testing.T) {
	type status struct{ Name string }
	var nilMap map[string]any

	cases := []struct {
		value any
		want  ValueKind
	}{
		{value: nil, want: KindNull},
		{value: nilMap, want: KindNull},
		{value: "x", want: KindString},
		{value: []byte("x"), want: KindString},
		{value: false, want: KindBool},
		{value: uint8(1), want: KindNumber},
		{value: 1.5, want: KindNumber},
		{value: [2]int{1, 2}, want: KindList},
		{value: map[string]any{"a": 1}, want: KindObject},
		{value: &status{Name: "a"}, want: KindObject},
		{value: ValueOf("x"), want: KindString},
	}
	for _, tc := range cases {
		if got := ValueOf(tc.value).Kind; got != tc.want {
			t.Fatalf("ValueOf(%#v).Kind=%v, want %v", tc.value, got, tc.want)
		}
	}
}
