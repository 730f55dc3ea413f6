package policy

import "fmt"

// NormalizeError indicates a fundamentally invalid waiter spec.
type NormalizeError struct {
	Field string
	Value string
}

func (e *NormalizeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("await: invalid waiter spec: %s=%q", e.Field, e.Value)
}
