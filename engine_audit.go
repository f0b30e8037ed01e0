package connector

import (
	"context"
	"errors"
)

const (
	auditEventVerifySuccess     = "verify_success"
	auditEventVerifyFailure     = "verify_failure"
	auditEventRateLimited       = "rate_limit_triggered"
	auditEventAutologinIssued   = "autologin_issued"
	auditEventAutologinRejected = "autologin_rejected"
	auditEventAutologinRedeemed = "autologin_redeemed"
	auditEventAutologinInvalid  = "autologin_invalid"
	auditEventSecretCreated     = "secret_created"
	auditEventSecretRotated     = "secret_rotated"
)

// retainedAuditEvents wait for queue space even when DropIfFull is set.
var retainedAuditEvents = []string{
	auditEventSecretCreated,
	auditEventSecretRotated,
	auditEventAutologinIssued,
	auditEventAutologinRedeemed,
}

// AuditErrorCode is the failure reason carried by an audit event.
type AuditErrorCode string

const (
	auditErrRateLimited      AuditErrorCode = "rate_limited"
	auditErrMissingHeaders   AuditErrorCode = "missing_headers"
	auditErrInvalidTimestamp AuditErrorCode = "invalid_timestamp"
	auditErrInvalidSignature AuditErrorCode = "invalid_signature"
	auditErrBadBody          AuditErrorCode = "bad_body"
	auditErrNoSecret         AuditErrorCode = "no_secret_key"
	auditErrUserNotFound     AuditErrorCode = "user_not_found"
	auditErrForbidden        AuditErrorCode = "forbidden"
	auditErrInvalidUserID    AuditErrorCode = "invalid_user_id"
	auditErrInvalidToken     AuditErrorCode = "invalid_token"
	auditErrUnavailable      AuditErrorCode = "backend_unavailable"
	auditErrInternal         AuditErrorCode = "internal_error"
)

// errTokenInvalid only labels failed redemptions in audit events; callers
// see ok=false instead.
var errTokenInvalid = errors.New("autologin token invalid")

type auditRecord struct {
	eventType string
	success   bool
	userID    int64
	siteID    string
	ip        string
	err       error
	metadata  func() map[string]string
}

func (e *Engine) emitAudit(ctx context.Context, rec auditRecord) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if rec.metadata != nil {
		metadata = rec.metadata()
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: rec.eventType,
		UserID:    rec.userID,
		SiteID:    rec.siteID,
		RequestID: RequestIDFromContext(ctx),
		IP:        rec.ip,
		Success:   rec.success,
		Metadata:  metadata,
	}
	if code := auditErrorCode(rec.err); code != "" {
		event.Error = string(code)
	}

	e.audit.Emit(ctx, event)
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrMissingHeaders):
		return auditErrMissingHeaders
	case errors.Is(err, ErrInvalidTimestamp):
		return auditErrInvalidTimestamp
	case errors.Is(err, ErrInvalidSignature):
		return auditErrInvalidSignature
	case errors.Is(err, ErrBodyTooLarge), errors.Is(err, ErrUnreadableBody):
		return auditErrBadBody
	case errors.Is(err, ErrNoSecretKey):
		return auditErrNoSecret
	case errors.Is(err, ErrUserNotFound):
		return auditErrUserNotFound
	case errors.Is(err, ErrForbidden):
		return auditErrForbidden
	case errors.Is(err, ErrInvalidUserID):
		return auditErrInvalidUserID
	case errors.Is(err, errTokenInvalid):
		return auditErrInvalidToken
	case errors.Is(err, ErrBackendUnavailable):
		return auditErrUnavailable
	default:
		return auditErrInternal
	}
}
