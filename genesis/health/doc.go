// Package health aggregates named checks into an overall status and
// adapts the aggregate to orchestrator probes.
//
// Checks run concurrently with bounded fan-out, each under its own
// timeout; a check that times out or panics reports UNHEALTHY instead of
// poisoning the aggregate. Critical checks fail the whole aggregate,
// non-critical failures only degrade it, and an empty registry reports
// UNKNOWN.
package health
