package connector

import (
	"errors"
	"net/http"
)

var (
	// ErrRateLimited is returned when a client exceeds the request budget of the current window.
	ErrRateLimited = errors.New("rate limited")
	// ErrMissingHeaders is returned when the timestamp or signature header is absent or empty.
	ErrMissingHeaders = errors.New("missing security headers")
	// ErrInvalidTimestamp is returned when the timestamp is unparsable or outside the tolerance.
	ErrInvalidTimestamp = errors.New("invalid or expired timestamp")
	// ErrInvalidSignature is returned when the signature does not match the canonical payload.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrNoSecretKey is returned when no shared secret is configured. It is a deployment fault.
	ErrNoSecretKey = errors.New("secret key not configured")
	// ErrBackendUnavailable is returned when the state store cannot be reached.
	ErrBackendUnavailable = errors.New("connector backend unavailable")
	// ErrBodyTooLarge is returned when the request body exceeds the read limit.
	ErrBodyTooLarge = errors.New("request body too large")
	// ErrUnreadableBody is returned when the request body could not be read.
	ErrUnreadableBody = errors.New("request body unreadable")

	// ErrUserNotFound is returned when an auto-login target does not resolve to an account.
	ErrUserNotFound = errors.New("user not found")
	// ErrForbidden is returned when an auto-login target is not allowed to administrate.
	ErrForbidden = errors.New("only administrators can use autologin")
	// ErrInvalidUserID is returned when an auto-login request carries no usable user id.
	ErrInvalidUserID = errors.New("user id required")

	// ErrEngineNotReady is returned by methods called on a nil or partially built Engine.
	ErrEngineNotReady = errors.New("engine not ready")
)

// StatusCode maps an engine error to the HTTP status the board expects.
// A nil error maps to 200.
func StatusCode(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, ErrMissingHeaders),
		errors.Is(err, ErrInvalidTimestamp),
		errors.Is(err, ErrInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUnreadableBody):
		return http.StatusBadRequest
	case errors.Is(err, ErrNoSecretKey):
		return http.StatusInternalServerError
	case errors.Is(err, ErrBackendUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrUserNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidUserID):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Code returns the stable machine-readable code for err, as sent to the board.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrRateLimited):
		return "wboard_rate_limit_exceeded"
	case errors.Is(err, ErrMissingHeaders):
		return "wboard_missing_headers"
	case errors.Is(err, ErrInvalidTimestamp):
		return "wboard_invalid_timestamp"
	case errors.Is(err, ErrInvalidSignature):
		return "wboard_invalid_signature"
	case errors.Is(err, ErrBodyTooLarge):
		return "wboard_body_too_large"
	case errors.Is(err, ErrUnreadableBody):
		return "wboard_bad_request"
	case errors.Is(err, ErrNoSecretKey):
		return "wboard_no_secret_key"
	case errors.Is(err, ErrBackendUnavailable):
		return "wboard_backend_unavailable"
	case errors.Is(err, ErrUserNotFound):
		return "wboard_user_not_found"
	case errors.Is(err, ErrForbidden):
		return "wboard_not_admin"
	case errors.Is(err, ErrInvalidUserID):
		return "wboard_missing_user_id"
	default:
		return "wboard_internal_error"
	}
}
