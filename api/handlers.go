package api

import (
	"encoding/json"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/wboard/connector"
	"github.com/wboard/connector/middleware"
)

// AutologinRequest is the body of POST /wboard/v1/autologin.
type AutologinRequest struct {
	UserID int64 `json:"user_id"`
}

// UnmarshalJSON accepts user_id as a JSON number or a numeric string.
// Fractions are truncated. Any other value leaves UserID at zero.
func (r *AutologinRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		UserID json.RawMessage `json:"user_id"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	r.UserID = parseUserID(raw.UserID)
	return nil
}

func parseUserID(raw json.RawMessage) int64 {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0
		}
		s = n.String()
	}
	s = strings.TrimSpace(s)

	if id, err := strconv.ParseInt(s, 10, 64); err == nil {
		return id
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || f < 1 || f >= math.MaxInt64 {
		return 0
	}
	return int64(f)
}

// AutologinResponse carries a freshly minted login link.
type AutologinResponse struct {
	Success     bool   `json:"success"`
	LoginURL    string `json:"login_url"`
	ExpiresAt   string `json:"expires_at"`
	RedirectURL string `json:"redirect_url"`
}

// RegenerateKeyResponse carries the new shared secret.
type RegenerateKeyResponse struct {
	Success   bool   `json:"success"`
	SecretKey string `json:"secret_key"`
}

// SessionResponse describes the logged-in browser user.
type SessionResponse struct {
	UserID    int64     `json:"user_id"`
	Login     string    `json:"login"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.collector.Collect(r.Context())
	if err != nil {
		s.logger.WithError(err).Error("status collection failed")
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) createAutologin(w http.ResponseWriter, r *http.Request) {
	var req AutologinRequest
	// An undecodable body is treated as a missing user id.
	_ = json.NewDecoder(r.Body).Decode(&req)
	if req.UserID <= 0 {
		middleware.WriteError(w, connector.ErrInvalidUserID)
		return
	}

	grant, err := s.engine.IssueAutologin(r.Context(), req.UserID)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, AutologinResponse{
		Success:     true,
		LoginURL:    grant.LoginURL,
		ExpiresAt:   grant.ExpiresAt.UTC().Format(time.RFC3339),
		RedirectURL: grant.RedirectURL,
	})
}

func (s *Server) regenerateKey(w http.ResponseWriter, r *http.Request) {
	secret, err := s.engine.RotateSecret(r.Context())
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, RegenerateKeyResponse{Success: true, SecretKey: secret})
}

func (s *Server) redeemAutologin(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Referrer-Policy", "no-referrer")

	userID, ok, err := s.engine.RedeemAutologin(r.Context(), r.URL.Query().Get(connector.TokenParam))
	if err != nil {
		writeErrorPage(w, http.StatusServiceUnavailable, "Service temporarily unavailable.")
		return
	}
	if !ok {
		writeErrorPage(w, http.StatusUnauthorized, "Invalid or expired token.")
		return
	}

	user, redirect, err := s.engine.AutologinLanding(r.Context(), userID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("autologin landing failed")
		writeErrorPage(w, http.StatusInternalServerError, "Unable to log the user in.")
		return
	}

	token, claims, err := s.sessions.Issue(user.ID, user.Login)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("session issue failed")
		writeErrorPage(w, http.StatusInternalServerError, "Unable to log the user in.")
		return
	}

	s.sessions.SetCookie(w, token, claims)
	s.logger.WithFields(logrus.Fields{"user_id": user.ID, "redirect": redirect}).Info("autologin completed")
	http.Redirect(w, r, redirect, http.StatusFound)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.SessionFromContext(r.Context())
	resp := SessionResponse{UserID: claims.UID, Login: claims.Login}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time.UTC()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	claims, _ := middleware.SessionFromContext(r.Context())
	if err := s.sessions.Revoke(r.Context(), claims); err != nil {
		middleware.WriteError(w, connector.ErrBackendUnavailable)
		return
	}
	s.sessions.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><title>Authentication error</title></head>
<body><h1>Authentication error</h1><p>{{.}}</p></body></html>
`))

func writeErrorPage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = errorPage.Execute(w, message)
}
