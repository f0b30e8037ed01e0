package connector

import (
	"errors"
	"net/url"
	"strings"
	"time"
)

// Config is the full engine configuration. Start from [DefaultConfig] and
// override what differs; the builder clones it, so later edits by the caller
// do not reach a built Engine.
type Config struct {
	Auth      AuthConfig
	Autologin AutologinConfig
	Secret    SecretConfig
	ClientIP  ClientIPConfig
	Store     StoreConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

/*
====================================
AUTH CONFIG
====================================
*/

// AuthConfig bounds request verification.
type AuthConfig struct {
	// TimestampTolerance is the largest accepted |now - timestamp|. The bound
	// itself is accepted.
	TimestampTolerance time.Duration
	// RateLimitMaxRequests is the number of requests one client IP may make
	// per window. The request that takes the count past it is refused.
	RateLimitMaxRequests int
	RateLimitWindow      time.Duration
	// LastRequestTTL is how long the last-request marker survives without a
	// new successful request.
	LastRequestTTL time.Duration
}

/*
====================================
AUTOLOGIN CONFIG
====================================
*/

type AutologinConfig struct {
	TokenTTL    time.Duration
	TokenLength int
	// SiteURL is the public base URL of the site. Login links are built as
	// SiteURL + "/?wboard_token=<token>".
	SiteURL string
}

/*
====================================
SECRET CONFIG
====================================
*/

// MinSecretLength is the shortest shared secret the engine accepts.
const MinSecretLength = 64

type SecretConfig struct {
	Length int
	// Initial, when set, is installed by EnsureSecret instead of a generated
	// value. An existing stored secret still wins.
	Initial string
}

/*
====================================
CLIENT IP CONFIG
====================================
*/

// ClientIPConfig lists the forwarding headers consulted before the socket
// address. An empty, non-nil list trusts the socket address only.
type ClientIPConfig struct {
	TrustedHeaders []string
}

/*
====================================
STORE CONFIG
====================================
*/

type StoreConfig struct {
	KeyPrefix string
}

/*
====================================
OBSERVABILITY CONFIG
====================================
*/

type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool

	// DrainTimeout bounds how long Close spends delivering queued events.
	DrainTimeout time.Duration
}

type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the configuration the board expects.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Auth: AuthConfig{
			TimestampTolerance:   300 * time.Second,
			RateLimitMaxRequests: 30,
			RateLimitWindow:      60 * time.Second,
			LastRequestTTL:       24 * time.Hour,
		},
		Autologin: AutologinConfig{
			TokenTTL:    30 * time.Second,
			TokenLength: 32,
			SiteURL:     "http://localhost",
		},
		Secret: SecretConfig{
			Length: 64,
		},
		ClientIP: ClientIPConfig{
			TrustedHeaders: []string{"CF-Connecting-IP", "X-Forwarded-For", "X-Real-IP"},
		},
		Store: StoreConfig{
			KeyPrefix: "wboard",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize:   1024,
			DropIfFull:   true,
			DrainTimeout: 5 * time.Second,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.ClientIP.TrustedHeaders != nil {
		out.ClientIP.TrustedHeaders = append([]string{}, cfg.ClientIP.TrustedHeaders...)
	}
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	// Auth
	if c.Auth.TimestampTolerance <= 0 {
		return errors.New("Auth TimestampTolerance must be > 0")
	}
	if c.Auth.TimestampTolerance%time.Second != 0 {
		return errors.New("Auth TimestampTolerance must be a whole number of seconds")
	}
	if c.Auth.RateLimitMaxRequests <= 0 {
		return errors.New("Auth RateLimitMaxRequests must be > 0")
	}
	if c.Auth.RateLimitWindow < time.Second {
		return errors.New("Auth RateLimitWindow must be >= 1s")
	}
	if c.Auth.LastRequestTTL <= 0 {
		return errors.New("Auth LastRequestTTL must be > 0")
	}

	// Autologin
	if c.Autologin.TokenTTL <= 0 {
		return errors.New("Autologin TokenTTL must be > 0")
	}
	if c.Autologin.TokenLength < 16 {
		return errors.New("Autologin TokenLength must be >= 16")
	}
	u, err := url.Parse(c.Autologin.SiteURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("Autologin SiteURL must be an absolute http(s) URL")
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return errors.New("Autologin SiteURL must not carry a query or fragment")
	}

	// Secret
	if c.Secret.Length < MinSecretLength {
		return errors.New("Secret Length must be >= 64")
	}
	if c.Secret.Initial != "" {
		if strings.TrimSpace(c.Secret.Initial) != c.Secret.Initial {
			return errors.New("Secret Initial must not have surrounding whitespace")
		}
		if len(c.Secret.Initial) < MinSecretLength {
			return errors.New("Secret Initial must be at least 64 characters")
		}
	}

	// Client IP
	for _, h := range c.ClientIP.TrustedHeaders {
		if strings.TrimSpace(h) == "" {
			return errors.New("ClientIP TrustedHeaders must not contain empty names")
		}
	}

	// Store
	if c.Store.KeyPrefix == "" {
		return errors.New("Store KeyPrefix must not be empty")
	}
	if strings.ContainsAny(c.Store.KeyPrefix, " \t\r\n") {
		return errors.New("Store KeyPrefix must not contain whitespace")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}
	if c.Audit.DrainTimeout < 0 {
		return errors.New("Audit DrainTimeout must be >= 0")
	}

	// Metrics
	if c.Metrics.EnableLatencyHistograms && !c.Metrics.Enabled {
		return errors.New("Metrics EnableLatencyHistograms requires Metrics Enabled")
	}

	return nil
}
