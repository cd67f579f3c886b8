package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Webhook event metrics
	webhookEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_webhook_events_total",
		Help: "Total provider webhook events handled",
	}, []string{
		"status",  // Paid, Cancelled
		"outcome", // recorded, duplicate, validation_error, not_found, upstream_error, storage_error, in_flight
	})

	webhookProcessingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "billing_webhook_processing_duration_seconds",
		Help:    "Time to process a webhook event end-to-end",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	}, []string{
		"status",
	})

	// A renewal schedule that could not be created or cleaned up
	reconciliationWarningsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_reconciliation_warnings_total",
		Help: "Ledger and provider schedule state that may have diverged",
	}, []string{
		"event", // Paid, Cancelled
		"stage", // schedule_create, payment_lookup, schedule_lookup, schedule_cancel
	})

	ledgerAppendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_appends_total",
		Help: "Rows appended to the payment ledger",
	}, []string{
		"status", // Paid, Cancel
	})

	// Provider metrics
	providerRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "provider_requests_total",
		Help: "Requests sent to the payment provider",
	}, []string{
		"operation",
		"result", // success, rejected, transport_error, circuit_open
	})

	providerRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "provider_request_duration_seconds",
		Help:    "Latency of payment provider requests",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{
		"operation",
	})

	// Delivery guard metrics
	deliveryGuardTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "billing_delivery_guard_total",
		Help: "Webhook delivery guard claims by result",
	}, []string{
		"result", // acquired, in_flight, done, error
	})
)

// RecordWebhookEvent records a handled webhook event
func RecordWebhookEvent(status, outcome string, duration time.Duration) {
	webhookEventsTotal.WithLabelValues(status, outcome).Inc()
	webhookProcessingDuration.WithLabelValues(status).Observe(duration.Seconds())
}

// RecordReconciliationWarning records a ledger/provider divergence
func RecordReconciliationWarning(event, stage string) {
	reconciliationWarningsTotal.WithLabelValues(event, stage).Inc()
}

// RecordLedgerAppend records a committed ledger row
func RecordLedgerAppend(status string) {
	ledgerAppendsTotal.WithLabelValues(status).Inc()
}

// RecordProviderRequest records one provider round-trip
func RecordProviderRequest(operation, result string, duration time.Duration) {
	providerRequestsTotal.WithLabelValues(operation, result).Inc()
	providerRequestDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

// RecordDeliveryGuard records a delivery guard claim
func RecordDeliveryGuard(result string) {
	deliveryGuardTotal.WithLabelValues(result).Inc()
}
