// Package metrics defines the Prometheus collectors exported by cloudrtd.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cloudrt",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latencies in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	httpRequestsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cloudrt",
		Name:      "http_requests_in_flight",
		Help:      "Current number of HTTP requests being served",
	})

	capabilityOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cloudrt",
		Name:      "capability_operations_total",
		Help:      "Capability operations by capability, operation and outcome",
	}, []string{"capability", "operation", "outcome"})

	capabilityDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cloudrt",
		Name:      "capability_operation_duration_seconds",
		Help:      "Capability operation latencies in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"capability", "operation"})

	pubsubPublished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cloudrt",
		Name:      "pubsub_events_published_total",
		Help:      "Events published per broker and topic",
	}, []string{"pubsub", "topic"})

	pubsubDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cloudrt",
		Name:      "pubsub_events_dropped_total",
		Help:      "Events dropped because a subscriber buffer was full",
	}, []string{"pubsub", "topic"})

	pubsubSubscribers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "cloudrt",
		Name:      "pubsub_subscribers",
		Help:      "Active subscribers per broker and topic",
	}, []string{"pubsub", "topic"})

	lockContention = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cloudrt",
		Name:      "lock_contention_total",
		Help:      "TryLock attempts that found the lock held",
	}, []string{"store"})

	circuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "cloudrt",
		Name:      "circuit_breaker_state",
		Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
	}, []string{"name"})

	rateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cloudrt",
		Name:      "ratelimit_rejections_total",
		Help:      "Requests rejected by the ingress rate limiter",
	})
)

// ObserveHTTPRequest records one served HTTP request.
func ObserveHTTPRequest(method, route, status string, elapsed time.Duration) {
	httpRequestDuration.WithLabelValues(method, route, status).Observe(elapsed.Seconds())
}

// HTTPInFlight tracks a request entering (+1) or leaving (-1) the server.
func HTTPInFlight(delta float64) {
	httpRequestsInFlight.Add(delta)
}

// ObserveOperation records one capability operation.
func ObserveOperation(capability, operation string, err error, elapsed time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	capabilityOps.WithLabelValues(capability, operation, outcome).Inc()
	capabilityDuration.WithLabelValues(capability, operation).Observe(elapsed.Seconds())
}

// RecordPublish counts a published event.
func RecordPublish(pubsub, topic string) {
	pubsubPublished.WithLabelValues(pubsub, topic).Inc()
}

// RecordDrop counts an event dropped on a full subscriber buffer.
func RecordDrop(pubsub, topic string) {
	pubsubDropped.WithLabelValues(pubsub, topic).Inc()
}

// SetSubscribers tracks the subscriber count of one topic.
func SetSubscribers(pubsub, topic string, n int) {
	pubsubSubscribers.WithLabelValues(pubsub, topic).Set(float64(n))
}

// RecordLockContention counts a TryLock that found the lock held.
func RecordLockContention(store string) {
	lockContention.WithLabelValues(store).Inc()
}

// SetCircuitBreakerState publishes a breaker state transition.
func SetCircuitBreakerState(name, state string) {
	var v float64
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	circuitBreakerState.WithLabelValues(name).Set(v)
}

// RecordRateLimited counts one 429 response.
func RecordRateLimited() {
	rateLimited.Inc()
}
