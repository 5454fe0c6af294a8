package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder on prometheus collectors.
type PrometheusRecorder struct {
	retryAttempts   *prometheus.CounterVec
	retryDelay      *prometheus.HistogramVec
	retryExhausted  *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
	breakerTransits *prometheus.CounterVec
	breakerRejected *prometheus.CounterVec
	healthStatus    *prometheus.GaugeVec
	healthDuration  *prometheus.HistogramVec
}

var _ Recorder = (*PrometheusRecorder)(nil)

// breakerStateValues maps breaker state names to gauge values so
// dashboards can plot transitions without label joins.
var breakerStateValues = map[string]float64{
	"closed":    0,
	"half-open": 1,
	"open":      2,
}

var healthStatusValues = map[string]float64{
	"HEALTHY":   0,
	"DEGRADED":  1,
	"UNHEALTHY": 2,
	"UNKNOWN":   3,
}

// NewPrometheusRecorder builds a recorder and registers its collectors
// with registerer. Pass prometheus.DefaultRegisterer for the usual global
// registry, or a private registry in tests.
func NewPrometheusRecorder(namespace string, registerer prometheus.Registerer) (*PrometheusRecorder, error) {
	r := &PrometheusRecorder{
		retryAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retry",
			Name:      "attempts_total",
			Help:      "Failed attempts observed by the retry executor.",
		}, []string{"operation"}),
		retryDelay: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "retry",
			Name:      "delay_seconds",
			Help:      "Backoff delay scheduled between attempts.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}, []string{"operation"}),
		retryExhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "retry",
			Name:      "exhausted_total",
			Help:      "Retry loops that gave up after exhausting their budget.",
		}, []string{"operation"}),
		breakerState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "circuitbreaker",
			Name:      "state",
			Help:      "Current breaker state (0 closed, 1 half-open, 2 open).",
		}, []string{"name"}),
		breakerTransits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "circuitbreaker",
			Name:      "transitions_total",
			Help:      "Breaker state transitions.",
		}, []string{"name", "from", "to"}),
		breakerRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "circuitbreaker",
			Name:      "rejections_total",
			Help:      "Calls rejected without invoking the protected operation.",
		}, []string{"name"}),
		healthStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "check_status",
			Help:      "Latest check status (0 healthy, 1 degraded, 2 unhealthy, 3 unknown).",
		}, []string{"name"}),
		healthDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "health",
			Name:      "check_duration_seconds",
			Help:      "Wall-clock cost of individual health checks.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"name"}),
	}

	collectors := []prometheus.Collector{
		r.retryAttempts, r.retryDelay, r.retryExhausted,
		r.breakerState, r.breakerTransits, r.breakerRejected,
		r.healthStatus, r.healthDuration,
	}

	for _, collector := range collectors {
		if err := registerer.Register(collector); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// RetryAttempt implements Recorder.
func (r *PrometheusRecorder) RetryAttempt(operation string, _ int, delay time.Duration) {
	r.retryAttempts.WithLabelValues(operation).Inc()
	r.retryDelay.WithLabelValues(operation).Observe(delay.Seconds())
}

// RetryExhausted implements Recorder.
func (r *PrometheusRecorder) RetryExhausted(operation string, _ int) {
	r.retryExhausted.WithLabelValues(operation).Inc()
}

// BreakerStateChange implements Recorder.
func (r *PrometheusRecorder) BreakerStateChange(name, from, to string) {
	r.breakerTransits.WithLabelValues(name, from, to).Inc()

	if value, ok := breakerStateValues[to]; ok {
		r.breakerState.WithLabelValues(name).Set(value)
	}
}

// BreakerRejection implements Recorder.
func (r *PrometheusRecorder) BreakerRejection(name string) {
	r.breakerRejected.WithLabelValues(name).Inc()
}

// HealthCheck implements Recorder.
func (r *PrometheusRecorder) HealthCheck(name, status string, duration time.Duration) {
	r.healthDuration.WithLabelValues(name).Observe(duration.Seconds())

	if value, ok := healthStatusValues[status]; ok {
		r.healthStatus.WithLabelValues(name).Set(value)
	}
}
