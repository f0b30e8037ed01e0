package connector

import (
	"time"

	"github.com/wboard/connector/signature"
)

// Wire names shared with the board.
const (
	HeaderTimestamp = signature.HeaderTimestamp
	HeaderSignature = signature.HeaderSignature
	HeaderSiteID    = signature.HeaderSiteID

	// TokenParam is the query parameter that carries an auto-login token.
	TokenParam = "wboard_token"
)

// SignedRequest is the part of an inbound board request the authenticator
// looks at. Body must be the raw bytes received.
type SignedRequest struct {
	ClientIP  string
	Timestamp string
	Signature string
	SiteID    string
	Body      []byte
	// BodyErr is set when the body could not be read in full. The request
	// still counts against the rate limit and is then refused with it.
	BodyErr error
}

// AutologinGrant is returned by [Engine.IssueAutologin].
type AutologinGrant struct {
	Token       string
	UserID      int64
	LoginURL    string
	ExpiresAt   time.Time
	RedirectURL string
}

// RoleAdministrator is the site role allowed to auto-login in a single-tenant
// deployment.
const RoleAdministrator = "administrator"

// User is the slice of a host account the issuer needs.
type User struct {
	ID    int64
	Login string
	Roles []string
}

// HasRole reports whether u carries role.
func (u User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}
