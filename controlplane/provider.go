package controlplane

import (
	"context"
	"fmt"

	"github.com/aponysus/await/policy"
)

// SpecProvider supplies the WaiterSpec registered under a key.
type SpecProvider interface {
	// GetSpec returns the normalized spec for key, or an error wrapping
	// ErrSpecNotFound when no such waiter exists.
	GetSpec(ctx context.Context, key policy.Key) (policy.WaiterSpec, error)
}

// StaticProvider is an in-process SpecProvider backed by a map.
type StaticProvider struct {
	Specs map[policy.Key]policy.WaiterSpec
}

// NewStaticProvider indexes specs by key. Later specs replace earlier ones
// with the same key.
func NewStaticProvider(specs ...policy.WaiterSpec) *StaticProvider {
	p := &StaticProvider{Specs: make(map[policy.Key]policy.WaiterSpec, len(specs))}
	for _, s := range specs {
		p.Specs[s.Key] = s
	}
	return p
}

func (p *StaticProvider) GetSpec(_ context.Context, key policy.Key) (policy.WaiterSpec, error) {
	if p == nil || p.Specs == nil {
		return policy.WaiterSpec{}, fmt.Errorf("%w: %s", ErrSpecNotFound, key)
	}
	s, ok := p.Specs[key]
	if !ok {
		return policy.WaiterSpec{}, fmt.Errorf("%w: %s", ErrSpecNotFound, key)
	}
	s.Key = key
	if s.Meta.Source == "" || s.Meta.Source == policy.SpecSourceUnknown {
		s.Meta.Source = policy.SpecSourceStatic
	}
	return s.Normalize()
}
