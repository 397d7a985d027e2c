package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels shared by the counters below.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeDuplicate = "duplicate"
	OutcomeIgnored   = "ignored"
	OutcomeRejected  = "rejected"
)

var (
	// WebhookEvents counts payment webhook deliveries by event type and outcome.
	WebhookEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_webhook_events_total",
			Help: "Payment gateway webhook deliveries by event type and outcome",
		},
		[]string{"event_type", "outcome"},
	)

	// RatingRecomputes counts denormalized rating recomputations by outcome.
	RatingRecomputes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tour_rating_recomputes_total",
			Help: "Tour rating aggregate recomputations by outcome",
		},
		[]string{"outcome"},
	)

	// CheckoutSessions counts checkout session creations by outcome.
	CheckoutSessions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_sessions_created_total",
			Help: "Payment gateway checkout sessions created by outcome",
		},
		[]string{"outcome"},
	)
)
