package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Decision-core metrics.
var (
	decisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "security_decisions_total",
			Help: "Total access decisions by outcome and denying check.",
		},
		[]string{"outcome", "reason"},
	)

	rateLimitTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "security_rate_limit_trips_total",
			Help: "Calls rejected by the rate limiter, by operation.",
		},
		[]string{"operation"},
	)

	alertEscalations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "security_alert_escalations_total",
			Help: "Alert escalations by resulting priority.",
		},
		[]string{"priority"},
	)

	tokenRevocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "security_token_revocations_total",
			Help: "Token revocations by token type.",
		},
		[]string{"type"},
	)
)

// Init registers the decision-core metrics in the default registry.
func Init() {
	prometheus.MustRegister(decisionsTotal, rateLimitTrips, alertEscalations, tokenRevocations)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordDecision counts one allow/deny outcome. reason is empty for allows.
func RecordDecision(allowed bool, reason string) {
	outcome := "allow"
	if !allowed {
		outcome = "deny"
	}
	decisionsTotal.WithLabelValues(outcome, reason).Inc()
}

// RecordRateLimitTrip counts a rejected call for the operation.
func RecordRateLimitTrip(operation string) {
	rateLimitTrips.WithLabelValues(operation).Inc()
}

// RecordEscalation counts an escalation into the given priority.
func RecordEscalation(priority string) {
	alertEscalations.WithLabelValues(priority).Inc()
}

// RecordRevocation counts a token revocation.
func RecordRevocation(tokenType string) {
	tokenRevocations.WithLabelValues(tokenType).Inc()
}
