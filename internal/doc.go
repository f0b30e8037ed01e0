// Package internal contains helpers that are private to the connector module:
// secret and token generation.
//
// # Sub-packages
//
//   - audit: asynchronous event dispatch and sinks
//   - clientip: best-effort client address resolution from request headers
//   - rate: fixed-window request counters
//   - stores: secret, last-request marker and auto-login token persistence
//
// # What this package must NOT do
//
//   - Export types that appear in the public connector API.
//   - Use math/rand for anything that ends up in a credential.
package internal
