package stores

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wboard/connector/kv"
)

var (
	ErrSecretNotFound   = errors.New("secret not found")
	ErrMarkerNotFound   = errors.New("last request marker not found")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// SecretStore persists the shared HMAC secret and the last-request marker.
// The secret never expires; the marker carries its own TTL.
type SecretStore struct {
	store  kv.Store
	prefix string
}

func NewSecretStore(store kv.Store, prefix string) *SecretStore {
	if prefix == "" {
		prefix = "wboard"
	}
	return &SecretStore{
		store:  store,
		prefix: prefix,
	}
}

func (s *SecretStore) secretKey() string {
	return s.prefix + ":secret_key"
}

func (s *SecretStore) markerKey() string {
	return s.prefix + ":last_request"
}

// Get returns the active secret in a single read.
func (s *SecretStore) Get(ctx context.Context) (string, error) {
	secret, err := s.store.Get(ctx, s.secretKey())
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return "", ErrSecretNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if secret == "" {
		return "", ErrSecretNotFound
	}
	return secret, nil
}

// Set replaces the active secret.
func (s *SecretStore) Set(ctx context.Context, secret string) error {
	if secret == "" {
		return errors.New("empty secret")
	}
	if err := s.store.Set(ctx, s.secretKey(), secret, 0); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// SetIfAbsent installs candidate unless a secret already exists, and returns
// whichever value is active afterwards.
func (s *SecretStore) SetIfAbsent(ctx context.Context, candidate string) (string, bool, error) {
	if candidate == "" {
		return "", false, errors.New("empty secret")
	}
	ok, err := s.store.SetNX(ctx, s.secretKey(), candidate, 0)
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	if ok {
		return candidate, true, nil
	}

	current, err := s.Get(ctx)
	if err != nil {
		return "", false, err
	}
	return current, false, nil
}

// MarkRequest overwrites the last-request marker with at.
func (s *SecretStore) MarkRequest(ctx context.Context, at time.Time, ttl time.Duration) error {
	value := at.UTC().Format(time.RFC3339)
	if err := s.store.Set(ctx, s.markerKey(), value, ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// LastRequest returns the last-request marker.
func (s *SecretStore) LastRequest(ctx context.Context) (time.Time, error) {
	value, err := s.store.Get(ctx, s.markerKey())
	if err != nil {
		if errors.Is(err, kv.ErrNotFound) {
			return time.Time{}, ErrMarkerNotFound
		}
		return time.Time{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	at, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode last request marker: %w", err)
	}
	return at, nil
}
