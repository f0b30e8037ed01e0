package middleware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/wboard/connector"
)

// DefaultMaxBodyBytes caps the body read for signature verification.
const DefaultMaxBodyBytes int64 = 1 << 20

type verifiedContextKey struct{}

// Verified describes a request that passed verification.
type Verified struct {
	ClientIP string
	SiteID   string
	Body     []byte
}

// VerifiedFromContext returns the verification result stored by
// RequireSignedRequest.
func VerifiedFromContext(ctx context.Context) (*Verified, bool) {
	v, ok := ctx.Value(verifiedContextKey{}).(*Verified)
	return v, ok
}

// GuardOption customizes RequireSignedRequest.
type GuardOption func(*guardConfig)

type guardConfig struct {
	maxBodyBytes int64
}

// WithMaxBodyBytes overrides DefaultMaxBodyBytes.
func WithMaxBodyBytes(n int64) GuardOption {
	return func(c *guardConfig) {
		if n > 0 {
			c.maxBodyBytes = n
		}
	}
}

// RequireSignedRequest admits only requests that pass Engine.VerifyRequest.
// The raw body is buffered for verification and handed on unchanged. A body
// that cannot be read is still passed to the engine so the request counts
// against the client's rate limit.
func RequireSignedRequest(engine *connector.Engine, opts ...GuardOption) func(http.Handler) http.Handler {
	cfg := guardConfig{maxBodyBytes: DefaultMaxBodyBytes}
	for _, opt := range opts {
		opt(&cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				WriteError(w, connector.ErrEngineNotReady)
				return
			}

			body, err := readBody(w, r, cfg.maxBodyBytes)

			req := connector.SignedRequest{
				ClientIP:  engine.ClientIP(r),
				Timestamp: r.Header.Get(connector.HeaderTimestamp),
				Signature: r.Header.Get(connector.HeaderSignature),
				SiteID:    r.Header.Get(connector.HeaderSiteID),
				Body:      body,
				BodyErr:   bodyError(err),
			}
			if err := engine.VerifyRequest(r.Context(), req); err != nil {
				WriteError(w, err)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			ctx := context.WithValue(r.Context(), verifiedContextKey{}, &Verified{
				ClientIP: req.ClientIP,
				SiteID:   req.SiteID,
				Body:     body,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	if r.Body == nil {
		return nil, nil
	}
	defer r.Body.Close()
	return io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
}

func bodyError(err error) error {
	if err == nil {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return fmt.Errorf("%w: limit %d", connector.ErrBodyTooLarge, tooLarge.Limit)
	}
	return fmt.Errorf("%w: %v", connector.ErrUnreadableBody, err)
}
