// Package otel publishes connector metrics through an OpenTelemetry Meter.
//
// [NewExporter] folds the engine counters into a handful of
// Int64ObservableCounters. Verification outcomes share wboard.verify.requests
// under an "outcome" attribute and token lifecycle events share
// wboard.autologin.tokens under "event". Verification latency is a bucket
// gauge keyed by "le" plus a sample count. One callback reads
// Engine.MetricsSnapshot on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers supply the Meter.
//   - Mutate engine state.
package otel
