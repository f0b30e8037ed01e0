package connector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wboard/connector/internal"
	"github.com/wboard/connector/internal/stores"
)

// SecretKey returns the active shared secret.
func (e *Engine) SecretKey(ctx context.Context) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}

	secret, err := e.secrets.Get(ctx)
	if err != nil {
		return "", e.secretError(err)
	}
	return secret, nil
}

// EnsureSecret installs a secret when none exists and returns the active one.
// Concurrent callers agree on a single value. Config.Secret.Initial, when
// set, is installed instead of a generated value.
func (e *Engine) EnsureSecret(ctx context.Context) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}

	if secret, err := e.secrets.Get(ctx); err == nil {
		return secret, nil
	} else if !errors.Is(err, stores.ErrSecretNotFound) {
		return "", e.secretError(err)
	}

	candidate := e.config.Secret.Initial
	if candidate == "" {
		generated, err := internal.NewSecret(e.config.Secret.Length)
		if err != nil {
			return "", err
		}
		candidate = generated
	}

	active, created, err := e.secrets.SetIfAbsent(ctx, candidate)
	if err != nil {
		return "", e.secretError(err)
	}
	if created {
		e.emitAudit(ctx, auditRecord{eventType: auditEventSecretCreated, success: true})
		e.logger.Info("shared secret created")
	}
	return active, nil
}

// RotateSecret replaces the secret with a fresh random value and returns it.
// Requests signed with the previous secret fail from this point on; there is
// no overlap window.
func (e *Engine) RotateSecret(ctx context.Context) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}

	secret, err := internal.NewSecret(e.config.Secret.Length)
	if err != nil {
		return "", err
	}
	if err := e.secrets.Set(ctx, secret); err != nil {
		return "", e.secretError(err)
	}

	e.metricInc(MetricSecretRotated)
	e.emitAudit(ctx, auditRecord{eventType: auditEventSecretRotated, success: true})
	e.logger.Info("shared secret rotated")

	return secret, nil
}

// LastRequestTime returns when the board last passed verification. ok is
// false when no request has been seen within the marker TTL.
func (e *Engine) LastRequestTime(ctx context.Context) (at time.Time, ok bool, err error) {
	if !e.ready() {
		return time.Time{}, false, ErrEngineNotReady
	}

	at, err = e.secrets.LastRequest(ctx)
	if err != nil {
		if errors.Is(err, stores.ErrMarkerNotFound) {
			return time.Time{}, false, nil
		}
		if errors.Is(err, stores.ErrStoreUnavailable) {
			return time.Time{}, false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		return time.Time{}, false, err
	}
	return at, true, nil
}

func (e *Engine) secretError(err error) error {
	switch {
	case errors.Is(err, stores.ErrSecretNotFound):
		return ErrNoSecretKey
	case errors.Is(err, stores.ErrStoreUnavailable):
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	default:
		return err
	}
}
