// Package internal holds helpers private to goAccount: secure random
// identifiers, numeric passcodes, and secret digests.
//
// # Sub-packages
//
//   - appconfig: environment-driven process configuration
//   - telemetry: opt-in OTLP trace export
//   - testkit: engine fixtures shared by package tests
package internal
