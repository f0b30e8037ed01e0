package connector

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wboard/connector/internal/rate"
	"github.com/wboard/connector/internal/stores"
	"github.com/wboard/connector/signature"
)

// VerifyRequest decides whether req comes from the board. Checks run in a
// fixed order and stop at the first failure: rate limit, body, header
// presence, timestamp freshness, then signature. Every request is counted,
// including ones refused later.
//
// On success the last-request marker is refreshed; a failure to write it is
// logged and does not fail the request.
func (e *Engine) VerifyRequest(ctx context.Context, req SignedRequest) error {
	if !e.ready() {
		return ErrEngineNotReady
	}

	start := time.Now()
	err := e.verify(ctx, req)
	e.metrics.Observe(MetricVerifyLatency, time.Since(start))

	if err != nil {
		if id, ok := metricForError(err); ok {
			e.metricInc(id)
		}
		eventType := auditEventVerifyFailure
		if errors.Is(err, ErrRateLimited) {
			eventType = auditEventRateLimited
		}
		e.emitAudit(ctx, auditRecord{
			eventType: eventType,
			siteID:    req.SiteID,
			ip:        req.ClientIP,
			err:       err,
		})
		e.logRejection(req, err)
		return err
	}

	e.metricInc(MetricVerifySuccess)
	e.emitAudit(ctx, auditRecord{
		eventType: auditEventVerifySuccess,
		success:   true,
		siteID:    req.SiteID,
		ip:        req.ClientIP,
	})

	if err := e.secrets.MarkRequest(ctx, e.now(), e.config.Auth.LastRequestTTL); err != nil {
		e.metricInc(MetricMarkerWriteFailed)
		e.logger.WithError(err).Warn("write last request marker")
	}

	return nil
}

func (e *Engine) verify(ctx context.Context, req SignedRequest) error {
	ip := req.ClientIP
	if ip == "" {
		ip = "0.0.0.0"
	}

	if _, err := e.limiter.Hit(ctx, ip); err != nil {
		if errors.Is(err, rate.ErrRateLimited) {
			return ErrRateLimited
		}
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if req.BodyErr != nil {
		if errors.Is(req.BodyErr, ErrBodyTooLarge) || errors.Is(req.BodyErr, ErrUnreadableBody) {
			return req.BodyErr
		}
		return fmt.Errorf("%w: %v", ErrUnreadableBody, req.BodyErr)
	}

	if strings.TrimSpace(req.Timestamp) == "" || strings.TrimSpace(req.Signature) == "" {
		return ErrMissingHeaders
	}

	ts, err := strconv.ParseInt(strings.TrimSpace(req.Timestamp), 10, 64)
	if err != nil {
		return ErrInvalidTimestamp
	}
	if !e.timestampFresh(ts) {
		return ErrInvalidTimestamp
	}

	secret, err := e.secrets.Get(ctx)
	if err != nil {
		if errors.Is(err, stores.ErrSecretNotFound) {
			return ErrNoSecretKey
		}
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}

	if !signature.Verify(secret, ts, req.Body, strings.TrimSpace(req.Signature)) {
		return ErrInvalidSignature
	}

	return nil
}

// timestampFresh reports |now - ts| <= tolerance without overflowing on
// extreme ts values.
func (e *Engine) timestampFresh(ts int64) bool {
	now := e.now().Unix()
	tol := int64(e.config.Auth.TimestampTolerance / time.Second)
	return ts >= now-tol && ts <= now+tol
}

func (e *Engine) logRejection(req SignedRequest, err error) {
	entry := e.logger.WithFields(logrus.Fields{
		"ip":   req.ClientIP,
		"code": Code(err),
	})
	if req.SiteID != "" {
		entry = entry.WithField("site_id", req.SiteID)
	}

	switch {
	case errors.Is(err, ErrNoSecretKey), errors.Is(err, ErrBackendUnavailable):
		entry.WithError(err).Error("request verification failed")
	default:
		entry.Debug("request rejected")
	}
}
