package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	CheckoutsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_sessions_total",
			Help: "Checkout initiations by outcome",
		},
		[]string{"outcome"},
	)

	WebhooksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhooks_total",
			Help: "Gateway webhook deliveries by outcome",
		},
		[]string{"outcome"},
	)

	OrderTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Order status transitions by trigger and resulting status",
		},
		[]string{"trigger", "status"},
	)
)

// Checkout outcomes.
const (
	CheckoutCreated      = "created"
	CheckoutReused       = "reused"
	CheckoutRetried      = "retried"
	CheckoutRejected     = "rejected"
	CheckoutGatewayError = "gateway_error"
)

// Webhook outcomes.
const (
	WebhookProcessed        = "processed"
	WebhookNoop             = "noop"
	WebhookDuplicate        = "duplicate"
	WebhookIgnored          = "ignored"
	WebhookInvalidSignature = "invalid_signature"
	WebhookRejected         = "rejected"
	WebhookError            = "error"
)

func init() {
	prometheus.MustRegister(httpRequestsTotal)
	prometheus.MustRegister(httpRequestDuration)
	prometheus.MustRegister(CheckoutsTotal)
	prometheus.MustRegister(WebhooksTotal)
	prometheus.MustRegister(OrderTransitionsTotal)
}

func ObserveHTTPRequest(method, route, status string, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, status).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func RecordCheckout(outcome string) {
	CheckoutsTotal.WithLabelValues(outcome).Inc()
}

func RecordWebhook(outcome string) {
	WebhooksTotal.WithLabelValues(outcome).Inc()
}

func RecordTransition(trigger, status string) {
	OrderTransitionsTotal.WithLabelValues(trigger, status).Inc()
}
