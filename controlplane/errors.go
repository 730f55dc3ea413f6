package controlplane

import "errors"

var (
	// ErrProviderUnavailable indicates the provider could not be reached or used.
	ErrProviderUnavailable = errors.New("await: spec provider unavailable")
	// ErrSpecNotFound indicates the provider has no spec for the requested key.
	ErrSpecNotFound = errors.New("await: waiter spec not found")
	// ErrSpecFetchFailed indicates a provider failure other than unavailability.
	ErrSpecFetchFailed = errors.New("await: waiter spec fetch failed")
)
