// Package metrics defines the Prometheus metrics exported on /metrics.
// All Record methods are safe to call on a nil *Metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Webhook metrics
	WebhookRequestsTotal   *prometheus.CounterVec
	WebhookDurationSeconds *prometheus.HistogramVec
	EventsTotal            *prometheus.CounterVec

	// Dispatch metrics
	RoutesTotal         *prometheus.CounterVec
	DispatchErrorsTotal *prometheus.CounterVec

	// Graph API metrics
	GraphRequestsTotal   *prometheus.CounterVec
	GraphDurationSeconds *prometheus.HistogramVec
	CircuitBreakerState  *prometheus.GaugeVec

	// Delivery metrics
	DeliveriesTotal    *prometheus.CounterVec
	DeliveryQueueDepth prometheus.Gauge
	DeliveryLagSeconds prometheus.Histogram

	// User directory metrics
	ProfileFetchesTotal    *prometheus.CounterVec
	SingleflightDedupTotal *prometheus.CounterVec
	KnownUsers             prometheus.Gauge
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		WebhookRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igbot_webhook_requests_total",
				Help: "Total number of webhook HTTP requests by method and outcome",
			},
			[]string{"method", "status"}, // status: accepted, verified, forbidden, invalid_signature, unsupported_object, bad_request
		),

		WebhookDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "igbot_webhook_event_duration_seconds",
				Help:    "Time to resolve the user and dispatch one event, by event type",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5},
			},
			[]string{"event_type"},
		),

		EventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igbot_events_total",
				Help: "Total number of inbound events by classified type",
			},
			[]string{"event_type"}, // echo, quick_reply, attachment, text, postback, referral, comment, unknown
		),

		RoutesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igbot_routes_total",
				Help: "Total number of dispatches by destination topic",
			},
			[]string{"topic"}, // care, curation, order, survey, welcome, default, fallback
		),

		DispatchErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igbot_dispatch_errors_total",
				Help: "Handler failures converted into an apology message",
			},
			[]string{"topic", "kind"}, // kind: error, panic
		),

		GraphRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igbot_graph_requests_total",
				Help: "Total number of Graph API calls by endpoint and status",
			},
			[]string{"endpoint", "status"}, // status: success, error, circuit_open
		),

		GraphDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "igbot_graph_duration_seconds",
				Help:    "Graph API call duration in seconds by endpoint",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
			},
			[]string{"endpoint"},
		),

		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "igbot_circuit_breaker_state",
				Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),

		DeliveriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igbot_deliveries_total",
				Help: "Total number of scheduled messages attempted by outcome",
			},
			[]string{"status"}, // sent, failed, abandoned
		),

		DeliveryQueueDepth: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "igbot_delivery_queue_depth",
				Help: "Messages waiting for their send time",
			},
		),

		DeliveryLagSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "igbot_delivery_lag_seconds",
				Help:    "Delay between a message's due time and its send attempt",
				Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5},
			},
		),

		ProfileFetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igbot_profile_fetches_total",
				Help: "Total number of user profile lookups by outcome",
			},
			[]string{"status"}, // success, error
		),

		SingleflightDedupTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "igbot_singleflight_dedup_total",
				Help: "Total number of deduplicated requests (requests that waited instead of executing)",
			},
			[]string{"module"},
		),

		KnownUsers: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "igbot_known_users",
				Help: "Users held in the in-memory directory",
			},
		),
	}
}

// RecordWebhookRequest records the outcome of one webhook HTTP request.
func (m *Metrics) RecordWebhookRequest(method, status string) {
	if m == nil {
		return
	}
	m.WebhookRequestsTotal.WithLabelValues(method, status).Inc()
}

// RecordEvent records one classified inbound event and its processing time.
func (m *Metrics) RecordEvent(eventType string, duration float64) {
	if m == nil {
		return
	}
	m.EventsTotal.WithLabelValues(eventType).Inc()
	m.WebhookDurationSeconds.WithLabelValues(eventType).Observe(duration)
}

// RecordRoute records which topic an event was dispatched to.
func (m *Metrics) RecordRoute(topic string) {
	if m == nil {
		return
	}
	m.RoutesTotal.WithLabelValues(topic).Inc()
}

// RecordDispatchError records a handler error or panic.
func (m *Metrics) RecordDispatchError(topic, kind string) {
	if m == nil {
		return
	}
	m.DispatchErrorsTotal.WithLabelValues(topic, kind).Inc()
}

// RecordGraphRequest records a Graph API call.
func (m *Metrics) RecordGraphRequest(endpoint, status string, duration float64) {
	if m == nil {
		return
	}
	m.GraphRequestsTotal.WithLabelValues(endpoint, status).Inc()
	m.GraphDurationSeconds.WithLabelValues(endpoint).Observe(duration)
}

// SetCircuitBreakerState records the breaker state as a number.
func (m *Metrics) SetCircuitBreakerState(name string, state float64) {
	if m == nil {
		return
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(state)
}

// RecordDelivery records a send attempt and how late it ran.
func (m *Metrics) RecordDelivery(status string, lagSeconds float64) {
	if m == nil {
		return
	}
	m.DeliveriesTotal.WithLabelValues(status).Inc()
	m.DeliveryLagSeconds.Observe(lagSeconds)
}

// SetDeliveryQueueDepth records the scheduler backlog.
func (m *Metrics) SetDeliveryQueueDepth(n int) {
	if m == nil {
		return
	}
	m.DeliveryQueueDepth.Set(float64(n))
}

// RecordProfileFetch records a profile lookup outcome.
func (m *Metrics) RecordProfileFetch(status string) {
	if m == nil {
		return
	}
	m.ProfileFetchesTotal.WithLabelValues(status).Inc()
}

// RecordSingleflightDedup records a deduplicated request
func (m *Metrics) RecordSingleflightDedup(module string) {
	if m == nil {
		return
	}
	m.SingleflightDedupTotal.WithLabelValues(module).Inc()
}

// SetKnownUsers records the directory size.
func (m *Metrics) SetKnownUsers(n int) {
	if m == nil {
		return
	}
	m.KnownUsers.Set(float64(n))
}
