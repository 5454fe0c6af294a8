// Package circuitbreaker guards calls to failing dependencies. Each
// protected dependency gets one named breaker, shared by all of its
// concurrent callers through a Manager; ad-hoc per-call breakers would
// defeat the fail-fast guarantee.
//
// The state machine (sony/gobreaker underneath) moves CLOSED to OPEN after
// a run of consecutive failures, OPEN to HALF_OPEN lazily once the open
// timeout elapses, and HALF_OPEN back to CLOSED after enough consecutive
// trial successes. Rejections surface as ErrCircuitOpen (open state) or
// ErrTooManyCalls (half-open capacity), so monitoring can tell protection
// from plain failure.
//
// Optional health-check integration resets breakers automatically once a
// downstream dependency recovers.
package circuitbreaker
