// Package observability provides structured logging and Prometheus metrics
// for the ParentNote backend.
//
// This package implements:
//   - zap logger construction from configuration (json or console)
//   - Prometheus collectors for analysis backend attempts and result sources
//
// Metrics satisfies analysis.Recorder, so the orchestrator reports every
// attempt without depending on Prometheus directly.
package observability
