// Package signature implements the board request signing scheme.
//
// A signed request carries a Unix timestamp and a signature header. The
// signature is
//
//	"sha256=" + hex(HMAC-SHA256(payload, secret))
//
// over the canonical payload
//
//	{"timestamp":<ts>,"data":<body>}
//
// where <body> is the request body with insignificant whitespace removed
// (key order and literals untouched), {} for an empty body, and null for a
// body that is not valid JSON. Signer and verifier both go through
// [CanonicalPayload], so the bytes match exactly.
//
// # What this package must NOT do
//
//   - Decide whether a timestamp is fresh (the connector engine does that).
//   - Compare signatures with anything but a constant-time comparison.
package signature
