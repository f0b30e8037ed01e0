package connector

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"
)

// LintSeverity ranks a [LintWarning].
type LintSeverity int

const (
	LintInfo LintSeverity = iota
	LintWarn
	LintHigh
)

func (s LintSeverity) String() string {
	switch s {
	case LintInfo:
		return "INFO"
	case LintWarn:
		return "WARN"
	case LintHigh:
		return "HIGH"
	default:
		return fmt.Sprintf("LintSeverity(%d)", int(s))
	}
}

// LintWarning flags a valid but risky setting.
type LintWarning struct {
	Code     string
	Severity LintSeverity
	Message  string
}

// LintResult is the ordered output of [Config.Lint].
type LintResult []LintWarning

func (r LintResult) Codes() []string {
	out := make([]string, 0, len(r))
	for _, w := range r {
		out = append(out, w.Code)
	}
	return out
}

// BySeverity returns warnings at or above min.
func (r LintResult) BySeverity(min LintSeverity) LintResult {
	var out LintResult
	for _, w := range r {
		if w.Severity >= min {
			out = append(out, w)
		}
	}
	return out
}

// AsError folds every warning at or above min into one error, or returns nil.
func (r LintResult) AsError(min LintSeverity) error {
	hits := r.BySeverity(min)
	if len(hits) == 0 {
		return nil
	}
	parts := make([]string, 0, len(hits))
	for _, w := range hits {
		parts = append(parts, w.Severity.String()+" "+w.Code+": "+w.Message)
	}
	return fmt.Errorf("config lint: %s", strings.Join(parts, "; "))
}

// Lint reports settings that pass Validate but weaken the trust model.
// It assumes Validate has passed.
func (c *Config) Lint() LintResult {
	var ws LintResult
	add := func(code string, sev LintSeverity, msg string) {
		ws = append(ws, LintWarning{Code: code, Severity: sev, Message: msg})
	}

	if c.Auth.TimestampTolerance > 5*time.Minute {
		add("tolerance_wide", LintWarn, "timestamp tolerance above 5m widens the replay window")
	}
	if c.Auth.RateLimitMaxRequests > 300 {
		add("rate_limit_high", LintInfo, "more than 300 requests per window per client")
	}
	if c.Autologin.TokenTTL > time.Minute {
		add("token_ttl_long", LintWarn, "autologin tokens live longer than 1m")
	}
	if len(c.ClientIP.TrustedHeaders) > 0 {
		add("forwarded_headers_trusted", LintInfo, "client IP is taken from forwarding headers; make sure the proxy overwrites them")
	}
	if u, err := url.Parse(c.Autologin.SiteURL); err == nil && u.Scheme == "http" && !isLoopbackHost(u.Hostname()) {
		add("site_url_insecure", LintHigh, "login links carry the token in plain http")
	}
	if !c.Audit.Enabled {
		add("audit_disabled", LintInfo, "audit events are not recorded")
	}

	return ws
}

func isLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
