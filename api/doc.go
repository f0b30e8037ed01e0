// Package api serves the connector's HTTP surface with gorilla/mux.
//
// Board routes live under /wboard/v1 and are gated by signature
// verification. The auto-login landing (GET /?wboard_token=...) and the
// session routes are browser facing and rely on the session cookie.
//
// # What this package must NOT do
//
//   - Verify signatures or tokens itself (delegates to connector.Engine).
//   - Gather platform data beyond what a StatusCollector returns.
package api
