// Package rate provides the fixed-window request counter that gates signed
// board requests.
//
// # Window semantics
//
// Fixed-window counters: INCR + EXPIRE on the first hit. A window that opens
// at T closes at T+Window no matter how much traffic follows, after which the
// count starts again from zero. Key layout: <prefix>:rate:<client ip>.
//
// Every call consumes a slot, including calls that end up rejected. Abusive
// clients stay throttled while probing.
//
// # What this package must NOT do
//
//   - Resolve client addresses (see internal/clientip).
//   - Be imported outside the connector module.
package rate
