// Package connector lets a remote monitoring board talk to a managed site
// without holding admin credentials. It verifies HMAC-signed,
// timestamp-bounded, rate-limited board requests and runs a single-use,
// short-lived auto-login token flow on the same trust model.
//
// The package is designed for concurrent server workloads: Engine methods are safe to call
// from multiple goroutines after initialization through [Builder.Build].
//
// # Architecture boundaries
//
// connector is the public surface. It exposes [Engine], [Builder], [Config], [Tenancy] and
// value types (SignedRequest, AutologinGrant, MetricsSnapshot). State lives behind a
// [kv.Store]; rate windows, secret storage, token storage, client IP resolution and
// audit dispatch live under internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Reveal the expected signature or the secret in errors or logs.
//   - Collect platform status data; that is the job of a StatusCollector in package api.
//   - Import any sub-package that re-imports connector (no import cycles).
//
// # Performance contract
//
// VerifyRequest performs one counter increment, one secret read and, on success, one
// marker write. It never reads the secret twice in one verification.
package connector
