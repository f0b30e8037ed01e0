// Package session hands a browser a signed cookie after an auto-login token
// has been redeemed.
//
// A session is a JWT carrying the user id and a random session id. Cookies are
// verified statelessly; when the manager is given a [kv.Store], logging out
// records the session id as revoked until the token would have expired anyway.
//
// # Architecture boundaries
//
// This package owns cookie issuance, parsing and revocation. It does NOT decide
// who may log in; the connector Engine does that before a session is issued.
//
// # What this package must NOT do
//
//   - Import the connector package (no upward imports).
//   - Put anything but identifiers in claims.
package session
