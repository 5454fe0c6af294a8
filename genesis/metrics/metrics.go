// Package metrics defines the small reporting surface the resilience
// components publish through: retry attempts, circuit breaker state, and
// health check outcomes. The library only reports counts; storage and
// scraping belong to the external collector.
package metrics

import "time"

// Recorder receives resilience events. Implementations must be safe for
// concurrent use. NopRecorder is the default everywhere, so instrumenting
// is opt-in.
type Recorder interface {
	// RetryAttempt is called once per failed attempt, with the delay
	// scheduled before the next one.
	RetryAttempt(operation string, attempt int, delay time.Duration)
	// RetryExhausted is called when a retry loop gives up.
	RetryExhausted(operation string, attempts int)
	// BreakerStateChange is called on every circuit breaker transition.
	BreakerStateChange(name, from, to string)
	// BreakerRejection is called when a breaker rejects a call without
	// invoking the protected operation.
	BreakerRejection(name string)
	// HealthCheck is called with each individual check outcome.
	HealthCheck(name, status string, duration time.Duration)
}

// NopRecorder drops all events.
type NopRecorder struct{}

func (NopRecorder) RetryAttempt(string, int, time.Duration)   {}
func (NopRecorder) RetryExhausted(string, int)                {}
func (NopRecorder) BreakerStateChange(string, string, string) {}
func (NopRecorder) BreakerRejection(string)                   {}
func (NopRecorder) HealthCheck(string, string, time.Duration) {}

// OrNop returns recorder when non-nil, otherwise a NopRecorder.
//
//nolint:ireturn
func OrNop(recorder Recorder) Recorder {
	if recorder != nil {
		return recorder
	}

	return NopRecorder{}
}
