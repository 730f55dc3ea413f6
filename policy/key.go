package policy

import "strings"

// Key identifies a waiter, typically "<service>.<WaiterName>".
type Key struct {
	Namespace string `json:"namespace,omitempty"`
	Name      string `json:"name"`
}

// ParseKey parses "namespace.name" into a Key.
//
// Only the first dot separates the namespace. Inputs without a usable
// namespace or name are kept whole in Name.
func ParseKey(s string) Key {
	s = strings.TrimSpace(s)
	if s == "" {
		return Key{}
	}

	ns, name, ok := strings.Cut(s, ".")
	if !ok {
		return Key{Name: s}
	}
	ns = strings.TrimSpace(ns)
	name = strings.TrimSpace(name)

	if name == "" {
		return Key{Name: s}
	}
	if ns == "" {
		return Key{Name: name}
	}
	return Key{Namespace: ns, Name: name}
}

func (k Key) String() string {
	switch {
	case k.Namespace == "":
		return k.Name
	case k.Name == "":
		return k.Namespace
	default:
		return k.Namespace + "." + k.Name
	}
}

// IsZero reports whether k has neither namespace nor name.
func (k Key) IsZero() bool {
	return k == Key{}
}
