// Package backoff computes retry delays: fixed, linear, exponential, and
// exponential with full jitter.
//
// Delay is pure given a Random source, so jittered schedules are
// reproducible in tests. SleepWithContext performs the actual wait while
// respecting cancellation and deadlines.
package backoff
