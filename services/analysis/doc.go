// Package analysis selects among behavior interpretation backends.
//
// This package provides:
//   - The Backend contract every interpretation strategy implements
//   - The Orchestrator, which tries backends in priority order
//   - BuildFallback, the result used when every backend fails
//
// Backends report failures through Outcome instead of returning errors, and
// the Orchestrator turns every failure into a fallback step, so Analyze always
// returns a complete Result.
package analysis
