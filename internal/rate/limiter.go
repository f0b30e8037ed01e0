package rate

import (
	"context"
	"fmt"
	"time"

	"github.com/wboard/connector/kv"
)

// Config holds rate limiter tuning parameters.
type Config struct {
	Prefix      string
	MaxRequests int
	Window      time.Duration
}

// Limiter enforces a per-key request budget using store counters.
type Limiter struct {
	store  kv.Store
	config Config
}

// New creates a rate [Limiter] backed by the given store.
func New(store kv.Store, cfg Config) *Limiter {
	if cfg.Prefix == "" {
		cfg.Prefix = "wboard"
	}
	return &Limiter{
		store:  store,
		config: cfg,
	}
}

// Hit records one request for key and returns the post-increment count.
// It returns ErrRateLimited when the count exceeds MaxRequests.
func (l *Limiter) Hit(ctx context.Context, key string) (int64, error) {
	count, err := l.store.Incr(ctx, l.key(key), l.config.Window)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	if count > int64(l.config.MaxRequests) {
		return count, ErrRateLimited
	}
	return count, nil
}

// Reset clears the window for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.store.Delete(ctx, l.key(key)); err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return nil
}

func (l *Limiter) key(k string) string {
	return l.config.Prefix + ":rate:" + k
}
