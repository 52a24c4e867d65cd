package metrics

import "github.com/prometheus/client_golang/prometheus"

// Prometheus metrics for the lifecycle engine
var (
	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Inbound provider webhook deliveries by processing result",
		},
		[]string{"result"},
	)

	OrderTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Successful order state transitions by target state",
		},
		[]string{"to_state"},
	)

	AuditDropsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_drops_total",
			Help: "Audit entries dropped because the queue was full",
		},
	)

	AuditWriteFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "audit_write_failures_total",
			Help: "Audit entries that failed to persist",
		},
	)

	GatewayRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Duration of payment gateway calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

// Webhook result label values.
const (
	WebhookAccepted  = "accepted"
	WebhookDuplicate = "duplicate"
	WebhookMalformed = "malformed"
	WebhookOrphan    = "orphan"
	WebhookMismatch  = "amount_mismatch"
	WebhookNoEffect  = "no_effect"
)

// Register registers all Prometheus metrics
func Register() {
	prometheus.MustRegister(WebhookEventsTotal)
	prometheus.MustRegister(OrderTransitionsTotal)
	prometheus.MustRegister(AuditDropsTotal)
	prometheus.MustRegister(AuditWriteFailuresTotal)
	prometheus.MustRegister(GatewayRequestDuration)
}
