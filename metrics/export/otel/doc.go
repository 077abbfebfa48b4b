// Package otel publishes the account engine's counters through an
// OpenTelemetry meter.
//
// [NewExporter] registers one observable counter per engine counter and one
// observable gauge per latency bucket. A single callback reads
// [goAccount.Engine.MetricsSnapshot] on each collection.
//
// # What this package must NOT do
//
//   - Own the MeterProvider. Callers pass in the Meter.
//   - Mutate engine state.
package otel
