package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/wboard/connector/session"
)

type sessionContextKey struct{}

// SessionFromContext returns the claims stored by RequireSession.
func SessionFromContext(ctx context.Context) (*session.Claims, bool) {
	claims, ok := ctx.Value(sessionContextKey{}).(*session.Claims)
	return claims, ok
}

// RequireSession admits only requests carrying a valid session cookie.
func RequireSession(manager *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if manager == nil {
				writeJSONError(w, http.StatusUnauthorized, "wboard_no_session", "Not logged in")
				return
			}

			claims, err := manager.FromRequest(r)
			if err != nil {
				if errors.Is(err, session.ErrUnavailable) {
					writeJSONError(w, http.StatusServiceUnavailable, "wboard_backend_unavailable", publicMessages["wboard_backend_unavailable"])
					return
				}
				writeJSONError(w, http.StatusUnauthorized, "wboard_no_session", "Not logged in")
				return
			}

			ctx := context.WithValue(r.Context(), sessionContextKey{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
