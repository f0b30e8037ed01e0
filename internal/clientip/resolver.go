// Package clientip resolves a best-effort client address for rate limiting.
//
// Forwarded headers are only as trustworthy as the proxy in front of the
// service. The resolver honors exactly the headers it is configured with, in
// order, and falls back to the socket address.
package clientip

import (
	"net"
	"net/http"
	"strings"
)

// Unknown is returned when no candidate parses as an IP address.
const Unknown = "0.0.0.0"

// DefaultHeaders is the CDN header, then X-Forwarded-For, then X-Real-IP.
var DefaultHeaders = []string{
	"CF-Connecting-IP",
	"X-Forwarded-For",
	"X-Real-IP",
}

// Resolver picks the first syntactically valid address among the trusted
// headers and the connection's remote address.
type Resolver struct {
	headers []string
}

// New returns a resolver trusting headers in the given order. A nil or
// empty list trusts the socket address only.
func New(headers []string) *Resolver {
	cleaned := make([]string, 0, len(headers))
	for _, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		cleaned = append(cleaned, http.CanonicalHeaderKey(h))
	}
	return &Resolver{headers: cleaned}
}

// Headers returns the trusted header names in priority order.
func (r *Resolver) Headers() []string {
	out := make([]string, len(r.headers))
	copy(out, r.headers)
	return out
}

// FromRequest resolves the client address of req.
func (r *Resolver) FromRequest(req *http.Request) string {
	if req == nil {
		return Unknown
	}
	return r.Resolve(req.Header, req.RemoteAddr)
}

// Resolve applies the resolution order to raw header values and a remote
// address in host:port or bare host form.
func (r *Resolver) Resolve(header http.Header, remoteAddr string) string {
	for _, name := range r.headers {
		if ip, ok := parseCandidate(header.Get(name)); ok {
			return ip
		}
	}

	host := strings.TrimSpace(remoteAddr)
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if ip, ok := parseCandidate(host); ok {
		return ip
	}

	return Unknown
}

func parseCandidate(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", false
	}
	// X-Forwarded-For may carry a chain; the first hop is the client.
	if i := strings.IndexByte(value, ','); i >= 0 {
		value = strings.TrimSpace(value[:i])
	}
	ip := net.ParseIP(value)
	if ip == nil {
		return "", false
	}
	return ip.String(), true
}
