// Package prometheus exposes connector metrics through client_golang.
//
// [Collector] implements prometheus.Collector. Counters are named
// wboard_*_total and the verification latency histogram is
// wboard_verify_latency_seconds. Register it with any registry, or mount
// [Collector.Handler] which uses a private one.
//
// # What this package must NOT do
//
//   - Register in the global Prometheus registry.
//   - Mutate engine state.
package prometheus
