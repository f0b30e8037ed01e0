// Package stores persists the connector's small pieces of shared state on top
// of a [kv.Store]: the HMAC secret, the last-request marker and the auto-login
// token map.
//
// # Design
//
// Tokens are consumed with a single atomic take, so two concurrent redemptions
// of the same token can never both resolve a user. The secret is read in one
// call per verification and replaced wholesale on rotation.
//
// # Architecture boundaries
//
// This package owns key layout and value encoding. It does NOT generate
// secrets or tokens, enforce rate limits, or decide who may log in.
//
// # What this package must NOT do
//
//   - Import the connector root package or any sibling internal package.
//   - Log or expose the secret.
package stores
