// Package audit implements async event dispatching for connector operations.
//
// # Components
//
//   - [Sink] for event consumers (channel, JSON writer, logrus, no-op).
//   - [Dispatcher], a buffered async relay with drop-if-full or block-if-full semantics.
//   - [Event], a structured record with id, timestamp, type, user, site, IP and metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which events
// to emit; the Engine does.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import the connector package or any sibling internal package.
//   - Perform network I/O beyond what a caller-supplied Sink does.
package audit
