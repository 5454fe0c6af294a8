// Package retry executes operations under a retry policy with classified
// failures, configurable backoff, and optional circuit breaker
// composition.
//
// The breaker wraps the innermost call: once it opens mid-loop, the
// remaining attempts fail fast without their backoff waits, and the final
// error carries the circuit-open code so dashboards can separate failed
// dependency calls from engaged protection.
package retry
