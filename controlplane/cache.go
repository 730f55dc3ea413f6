package controlplane

import (
	"sync"
	"time"

	"github.com/aponysus/await/policy"
)

type cacheEntry struct {
	spec      policy.WaiterSpec
	expiresAt time.Time
	found     bool // false marks a negative entry
}

// SpecCache is a thread-safe TTL cache of specs, including negative entries
// for keys known to be missing.
type SpecCache struct {
	mu      sync.RWMutex
	entries map[policy.Key]cacheEntry
	nowFn   func() time.Time
}

func NewSpecCache() *SpecCache {
	return &SpecCache{entries: make(map[policy.Key]cacheEntry)}
}

// Get returns the cached spec. ok is false when the key is absent or
// expired; missing is true for a live negative entry.
func (c *SpecCache) Get(key policy.Key) (spec policy.WaiterSpec, ok bool, missing bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, found := c.entries[key]
	if !found || c.now().After(entry.expiresAt) {
		return policy.WaiterSpec{}, false, false
	}
	return entry.spec, true, !entry.found
}

func (c *SpecCache) Set(key policy.Key, spec policy.WaiterSpec, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{spec: spec, expiresAt: c.now().Add(ttl), found: true}
}

// SetMissing records a negative entry.
func (c *SpecCache) SetMissing(key policy.Key, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{expiresAt: c.now().Add(ttl)}
}

func (c *SpecCache) Invalidate(key policy.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Purge drops every entry.
func (c *SpecCache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

func (c *SpecCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

func (c *SpecCache) now() time.Time {
	if c.nowFn != nil {
		return c.nowFn()
	}
	return time.Now()
}
