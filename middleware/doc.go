// Package middleware adapts connector.Engine and session.Manager to
// net/http.
//
// # Gates
//
//   - [RequireSignedRequest]: board requests, checked by Engine.VerifyRequest.
//   - [RequireSession]: browser requests after an auto-login hand-off.
//   - [RequestID]: tags requests so audit events can be correlated.
//
// Rejections are written by [WriteError] as a JSON {"code","message"} body
// with the status from connector.StatusCode.
//
// # What this package must NOT do
//
//   - Compute or compare signatures (delegates to Engine).
//   - Access the state store directly.
//   - Echo internal error text to clients.
package middleware
