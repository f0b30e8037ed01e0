package kv

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a key is absent or expired.
	ErrNotFound = errors.New("kv: key not found")
	// ErrUnavailable wraps backend failures.
	ErrUnavailable = errors.New("kv: backend unavailable")
	// ErrNotCounter is returned by Incr when the key holds a non-integer value.
	ErrNotCounter = errors.New("kv: value is not an integer")
)

// Store is a keyed store with per-entry expiry.
//
// A ttl of zero means the entry never expires.
type Store interface {
	// Incr increments the counter at key and returns the new value. The
	// window TTL is applied only when the counter is created, so the entry
	// expires window after the first hit regardless of later traffic.
	Incr(ctx context.Context, key string, window time.Duration) (int64, error)
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Take returns the value at key and deletes it in one atomic step.
	Take(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, keys ...string) error
}
