package rate

import "errors"

var (
	// ErrRateLimited is returned once a key exceeds its window budget.
	ErrRateLimited = errors.New("rate limited")
	// ErrBackendUnavailable wraps counter store failures.
	ErrBackendUnavailable = errors.New("rate backend unavailable")
)
