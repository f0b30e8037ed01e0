package session

import (
	"context"
	"crypto/ed25519"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/wboard/connector/kv"
)

// SigningMethod selects the JWT algorithm for session cookies.
type SigningMethod string

const (
	MethodHS256   SigningMethod = "hs256"
	MethodEd25519 SigningMethod = "ed25519"
)

const DefaultCookieName = "wboard_session"

var (
	ErrNoSession      = errors.New("no session cookie")
	ErrInvalidSession = errors.New("invalid session")
	ErrSessionRevoked = errors.New("session revoked")
	ErrUnavailable    = errors.New("session store unavailable")
)

// Config controls token lifetime, keys and cookie attributes.
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	// Key is the HS256 secret, or an ed25519 private key (raw or PEM).
	Key []byte
	// PublicKey is the ed25519 verify key. It is derived from Key when empty.
	PublicKey []byte
	Issuer    string
	Audience  string
	Leeway    time.Duration

	CookieName string
	CookiePath string
	Secure     bool
	SameSite   http.SameSite

	// KeyPrefix namespaces revocation keys in the store.
	KeyPrefix string
}

// Claims identify the logged-in user.
type Claims struct {
	UID   int64  `json:"uid"`
	Login string `json:"login,omitempty"`
	jwt.RegisteredClaims
}

// Manager issues and verifies session cookies.
type Manager struct {
	config    Config
	method    jwt.SigningMethod
	signKey   interface{}
	verifyKey interface{}
	store     kv.Store
	now       func() time.Time
}

// Option customizes a Manager.
type Option func(*Manager)

// WithStore enables revocation backed by store.
func WithStore(store kv.Store) Option {
	return func(m *Manager) { m.store = store }
}

// WithClock replaces time.Now for issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

func NewManager(cfg Config, opts ...Option) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid session TTL")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	if cfg.CookiePath == "" {
		cfg.CookiePath = "/"
	}
	if cfg.SameSite == 0 {
		cfg.SameSite = http.SameSiteLaxMode
	}
	if cfg.KeyPrefix == "" {
		cfg.KeyPrefix = "wboard"
	}

	m := &Manager{config: cfg, now: time.Now}

	switch cfg.SigningMethod {
	case MethodHS256, "":
		if len(cfg.Key) < 32 {
			return nil, errors.New("hs256 requires a key of at least 32 bytes")
		}
		m.config.SigningMethod = MethodHS256
		m.method = jwt.SigningMethodHS256
		m.signKey = cfg.Key
		m.verifyKey = cfg.Key
	case MethodEd25519:
		priv, err := parseEdPrivateKey(cfg.Key)
		if err != nil {
			return nil, err
		}
		pub := priv.Public().(ed25519.PublicKey)
		if len(cfg.PublicKey) > 0 {
			if pub, err = parseEdPublicKey(cfg.PublicKey); err != nil {
				return nil, err
			}
		}
		m.method = jwt.SigningMethodEdDSA
		m.signKey = priv
		m.verifyKey = pub
	default:
		return nil, errors.New("unsupported signing method")
	}

	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// CookieName returns the configured cookie name.
func (m *Manager) CookieName() string {
	return m.config.CookieName
}

// Issue signs a session for userID.
func (m *Manager) Issue(userID int64, login string) (string, *Claims, error) {
	if userID <= 0 {
		return "", nil, errors.New("invalid session user id")
	}

	now := m.now()
	claims := &Claims{
		UID:   userID,
		Login: login,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    m.config.Issuer,
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	token, err := jwt.NewWithClaims(m.method, claims).SignedString(m.signKey)
	if err != nil {
		return "", nil, err
	}
	return token, claims, nil
}

// Parse verifies token and returns its claims. Revoked sessions fail with
// ErrSessionRevoked when a store is configured.
func (m *Manager) Parse(ctx context.Context, token string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.verifyKey, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.UID <= 0 || claims.ID == "" {
		return nil, ErrInvalidSession
	}

	if m.store != nil {
		_, err := m.store.Get(ctx, m.revokedKey(claims.ID))
		switch {
		case err == nil:
			return nil, ErrSessionRevoked
		case errors.Is(err, kv.ErrNotFound):
		default:
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	return claims, nil
}

// Revoke invalidates claims until they would expire on their own. It is a
// no-op without a store.
func (m *Manager) Revoke(ctx context.Context, claims *Claims) error {
	if m.store == nil || claims == nil || claims.ID == "" {
		return nil
	}

	ttl := time.Second
	if claims.ExpiresAt != nil {
		if remaining := claims.ExpiresAt.Time.Sub(m.now()) + m.config.Leeway; remaining > ttl {
			ttl = remaining
		}
	}
	if err := m.store.Set(ctx, m.revokedKey(claims.ID), "1", ttl); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// SetCookie writes token as the session cookie.
func (m *Manager) SetCookie(w http.ResponseWriter, token string, claims *Claims) {
	cookie := &http.Cookie{
		Name:     m.config.CookieName,
		Value:    token,
		Path:     m.config.CookiePath,
		HttpOnly: true,
		Secure:   m.config.Secure,
		SameSite: m.config.SameSite,
	}
	if claims != nil && claims.ExpiresAt != nil {
		cookie.Expires = claims.ExpiresAt.Time
		cookie.MaxAge = int(m.config.TTL / time.Second)
	}
	http.SetCookie(w, cookie)
}

// ClearCookie expires the session cookie in the browser.
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.config.CookieName,
		Value:    "",
		Path:     m.config.CookiePath,
		HttpOnly: true,
		Secure:   m.config.Secure,
		SameSite: m.config.SameSite,
		MaxAge:   -1,
	})
}

// FromRequest parses the session cookie on r.
func (m *Manager) FromRequest(r *http.Request) (*Claims, error) {
	cookie, err := r.Cookie(m.config.CookieName)
	if err != nil || strings.TrimSpace(cookie.Value) == "" {
		return nil, ErrNoSession
	}
	return m.Parse(r.Context(), cookie.Value)
}

func (m *Manager) revokedKey(sid string) string {
	return m.config.KeyPrefix + ":session_revoked:" + sid
}

func parseEdPrivateKey(key []byte) (ed25519.PrivateKey, error) {
	if len(key) == ed25519.PrivateKeySize {
		return ed25519.PrivateKey(key), nil
	}
	parsed, err := jwt.ParseEdPrivateKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 private key")
	}
	edKey, ok := parsed.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("invalid ed25519 private key type")
	}
	return edKey, nil
}

func parseEdPublicKey(key []byte) (ed25519.PublicKey, error) {
	if len(key) == ed25519.PublicKeySize {
		return ed25519.PublicKey(key), nil
	}
	parsed, err := jwt.ParseEdPublicKeyFromPEM(key)
	if err != nil {
		return nil, errors.New("invalid ed25519 public key")
	}
	edKey, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("invalid ed25519 public key type")
	}
	return edKey, nil
}
