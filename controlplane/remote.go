package controlplane

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aponysus/await/policy"
)

// Source fetches raw specs from a backing store.
type Source interface {
	// FetchSpec returns the spec for key, or an error wrapping
	// ErrSpecNotFound.
	FetchSpec(ctx context.Context, key policy.Key) (policy.WaiterSpec, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, key policy.Key) (policy.WaiterSpec, error)

func (f SourceFunc) FetchSpec(ctx context.Context, key policy.Key) (policy.WaiterSpec, error) {
	return f(ctx, key)
}

// RemoteProvider is a SpecProvider that fetches specs from a Source and
// caches them.
type RemoteProvider struct {
	source           Source
	cache            *SpecCache
	cacheTTL         time.Duration
	negativeCacheTTL time.Duration
}

// RemoteProviderOption configures a RemoteProvider.
type RemoteProviderOption func(*RemoteProvider)

// WithCacheTTL sets the TTL for successful lookups. Default is 1 minute.
func WithCacheTTL(ttl time.Duration) RemoteProviderOption {
	return func(p *RemoteProvider) {
		p.cacheTTL = ttl
	}
}

// WithNegativeCacheTTL sets the TTL for missing-spec lookups. Default is 10 seconds.
func WithNegativeCacheTTL(ttl time.Duration) RemoteProviderOption {
	return func(p *RemoteProvider) {
		p.negativeCacheTTL = ttl
	}
}

func NewRemoteProvider(source Source, opts ...RemoteProviderOption) *RemoteProvider {
	p := &RemoteProvider{
		source:           source,
		cache:            NewSpecCache(),
		cacheTTL:         1 * time.Minute,
		negativeCacheTTL: 10 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GetSpec returns the spec for key, checking the cache first. Specs that
// fail normalization are never cached.
func (p *RemoteProvider) GetSpec(ctx context.Context, key policy.Key) (policy.WaiterSpec, error) {
	if spec, ok, missing := p.cache.Get(key); ok {
		if missing {
			return policy.WaiterSpec{}, fmt.Errorf("%w: %s", ErrSpecNotFound, key)
		}
		return spec, nil
	}

	if p.source == nil {
		return policy.WaiterSpec{}, ErrProviderUnavailable
	}
	spec, err := p.source.FetchSpec(ctx, key)
	if err != nil {
		if errors.Is(err, ErrSpecNotFound) {
			p.cache.SetMissing(key, p.negativeCacheTTL)
			return policy.WaiterSpec{}, err
		}
		if errors.Is(err, ErrProviderUnavailable) {
			return policy.WaiterSpec{}, err
		}
		return policy.WaiterSpec{}, fmt.Errorf("%w: %s: %w", ErrSpecFetchFailed, key, err)
	}

	spec.Key = key
	if spec.Meta.Source == "" || spec.Meta.Source == policy.SpecSourceUnknown {
		spec.Meta.Source = policy.SpecSourceRemote
	}
	normalized, err := spec.Normalize()
	if err != nil {
		return policy.WaiterSpec{}, err
	}

	p.cache.Set(key, normalized, p.cacheTTL)
	return normalized, nil
}

// Invalidate drops the cached entry for key.
func (p *RemoteProvider) Invalidate(key policy.Key) { p.cache.Invalidate(key) }

// Purge drops every cached entry.
func (p *RemoteProvider) Purge() { p.cache.Purge() }
