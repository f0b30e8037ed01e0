package connector

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/wboard/connector/internal"
	"github.com/wboard/connector/internal/stores"
)

// IssueAutologin mints a single-use login token for userID. The target must
// exist and be allowed to administrate: super admins on a multi-tenant
// network, administrators on a single site. Nothing is stored when a check
// fails.
func (e *Engine) IssueAutologin(ctx context.Context, userID int64) (*AutologinGrant, error) {
	if !e.ready() || e.tenancy == nil {
		return nil, ErrEngineNotReady
	}

	grant, err := e.issueAutologin(ctx, userID)
	if err != nil {
		e.metricInc(MetricAutologinRejected)
		if errors.Is(err, ErrBackendUnavailable) {
			e.metricInc(MetricBackendUnavailable)
		}
		e.emitAudit(ctx, auditRecord{
			eventType: auditEventAutologinRejected,
			userID:    userID,
			err:       err,
		})
		return nil, err
	}

	e.metricInc(MetricAutologinIssued)
	e.emitAudit(ctx, auditRecord{
		eventType: auditEventAutologinIssued,
		success:   true,
		userID:    userID,
		metadata: func() map[string]string {
			return map[string]string{"expires_at": strconv.FormatInt(grant.ExpiresAt.Unix(), 10)}
		},
	})
	return grant, nil
}

func (e *Engine) issueAutologin(ctx context.Context, userID int64) (*AutologinGrant, error) {
	if userID <= 0 {
		return nil, ErrInvalidUserID
	}

	user, ok, err := e.tenancy.LookupUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if !ok {
		return nil, ErrUserNotFound
	}

	allowed, err := e.canAdministrate(ctx, user)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, ErrForbidden
	}

	redirect, err := e.tenancy.AdminURL(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve admin url: %w", err)
	}

	token, err := internal.NewToken(e.config.Autologin.TokenLength)
	if err != nil {
		return nil, err
	}

	ttl := e.config.Autologin.TokenTTL
	now := e.now()
	if err := e.tokens.Save(ctx, token, user.ID, ttl); err != nil {
		if errors.Is(err, stores.ErrStoreUnavailable) {
			return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
		}
		return nil, err
	}

	return &AutologinGrant{
		Token:       token,
		UserID:      user.ID,
		LoginURL:    loginURL(e.config.Autologin.SiteURL, token),
		ExpiresAt:   now.Add(ttl),
		RedirectURL: redirect,
	}, nil
}

// canAdministrate applies the tier rule: multi-tenant deployments accept
// only super admins, single sites only administrators.
func (e *Engine) canAdministrate(ctx context.Context, user User) (bool, error) {
	if e.tenancy.IsMultiTenant() {
		super, err := e.tenancy.IsSuperAdmin(ctx, user.ID)
		if err != nil {
			return false, fmt.Errorf("resolve super admin: %w", err)
		}
		return super, nil
	}
	return user.HasRole(RoleAdministrator), nil
}

// RedeemAutologin exchanges token for the user it was issued to. The token
// is gone after the first call whatever the outcome, so of any number of
// concurrent redemptions at most one sees ok=true. Unknown, expired and
// malformed tokens all yield ok=false with a nil error.
func (e *Engine) RedeemAutologin(ctx context.Context, token string) (userID int64, ok bool, err error) {
	if !e.ready() {
		return 0, false, ErrEngineNotReady
	}

	if !internal.IsToken(token, e.config.Autologin.TokenLength) {
		e.redeemFailed(ctx, 0)
		return 0, false, nil
	}

	userID, err = e.tokens.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, stores.ErrTokenNotFound) {
			e.redeemFailed(ctx, 0)
			return 0, false, nil
		}
		e.metricInc(MetricBackendUnavailable)
		return 0, false, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	e.metricInc(MetricAutologinRedeemed)
	e.emitAudit(ctx, auditRecord{
		eventType: auditEventAutologinRedeemed,
		success:   true,
		userID:    userID,
	})
	return userID, true, nil
}

func (e *Engine) redeemFailed(ctx context.Context, userID int64) {
	e.metricInc(MetricAutologinRedeemFailed)
	e.emitAudit(ctx, auditRecord{
		eventType: auditEventAutologinInvalid,
		userID:    userID,
		err:       errTokenInvalid,
	})
}

// AutologinLanding resolves where a freshly redeemed user should land. It
// fails with ErrUserNotFound when the account vanished after the token was
// issued.
func (e *Engine) AutologinLanding(ctx context.Context, userID int64) (User, string, error) {
	if e == nil || e.tenancy == nil {
		return User{}, "", ErrEngineNotReady
	}

	user, ok, err := e.tenancy.LookupUser(ctx, userID)
	if err != nil {
		return User{}, "", fmt.Errorf("lookup user: %w", err)
	}
	if !ok {
		return User{}, "", ErrUserNotFound
	}

	redirect, err := e.tenancy.AdminURL(ctx, user.ID)
	if err != nil {
		return User{}, "", fmt.Errorf("resolve admin url: %w", err)
	}
	return user, redirect, nil
}

func loginURL(siteURL, token string) string {
	q := url.Values{}
	q.Set(TokenParam, token)
	return strings.TrimRight(siteURL, "/") + "/?" + q.Encode()
}
