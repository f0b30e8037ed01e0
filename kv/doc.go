// Package kv provides the small TTL key-value capability the connector keeps
// its transient state in: rate windows, auto-login tokens, the shared secret
// and the last-request marker.
//
// # Backends
//
//   - [RedisStore]: go-redis client; counters use INCR with EXPIRE on the first
//     hit, takes use GETDEL.
//   - [MemoryStore]: single-process map guarded by one mutex, with a background
//     sweep of expired entries.
//
// Both backends make Incr and Take atomic with respect to concurrent callers on
// the same key.
//
// # What this package must NOT do
//
//   - Know about connector key layouts or prefixes (callers build keys).
//   - Interpret stored values beyond the integer counters of Incr.
package kv
