package observability

import "github.com/prometheus/client_golang/prometheus"

// Ledger counters. Label values come from closed sets (event types, product
// types, fixed outcome strings) so cardinality stays bounded.
var (
	// WebhookEvents counts processed webhook deliveries by event type and
	// outcome (applied, duplicate, failed, invalid_signature).
	WebhookEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_webhook_events_total",
			Help: "Webhook deliveries by event type and outcome.",
		},
		[]string{"type", "outcome"},
	)

	// SlotClaims counts availability slot claims by outcome (won, lost, orphaned,
	// released).
	SlotClaims = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_slot_claims_total",
			Help: "Availability slot claim attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// Payouts counts withdrawal requests by outcome.
	Payouts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_payouts_total",
			Help: "Withdrawal requests by outcome.",
		},
		[]string{"outcome"},
	)

	// CheckoutSessions counts created checkout sessions by product type.
	CheckoutSessions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payments_checkout_sessions_total",
			Help: "Checkout sessions created by product type.",
		},
		[]string{"product_type"},
	)
)

func init() {
	prometheus.MustRegister(WebhookEvents, SlotClaims, Payouts, CheckoutSessions)
}
