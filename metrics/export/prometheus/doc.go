// Package prometheus serves the account engine's counters in the Prometheus
// text exposition format.
//
// The exporter keeps no state of its own. Every scrape takes a fresh
// [goAccount.MetricsSnapshot] and renders it; the latency histogram appears
// only when the engine records it.
package prometheus
