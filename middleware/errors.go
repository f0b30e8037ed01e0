package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/wboard/connector"
)

// ErrorBody is the JSON error envelope sent to the board.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var publicMessages = map[string]string{
	"wboard_rate_limit_exceeded": "Rate limit exceeded",
	"wboard_missing_headers":     "Missing security headers",
	"wboard_invalid_timestamp":   "Invalid or expired timestamp",
	"wboard_invalid_signature":   "Invalid signature",
	"wboard_body_too_large":      "Request body too large",
	"wboard_bad_request":         "Could not read request body",
	"wboard_no_secret_key":       "Secret key not configured",
	"wboard_backend_unavailable": "Service temporarily unavailable",
	"wboard_user_not_found":      "User not found",
	"wboard_not_admin":           "Only administrators can use autologin",
	"wboard_missing_user_id":     "User ID required",
	"wboard_internal_error":      "Internal error",
}

// WriteError renders err with the status and code the board expects. The
// message is fixed per code so wrapped causes never reach the client.
func WriteError(w http.ResponseWriter, err error) {
	code := connector.Code(err)
	writeJSONError(w, connector.StatusCode(err), code, publicMessages[code])
}

func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorBody{Code: code, Message: message})
}
