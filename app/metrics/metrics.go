package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	loginOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vrcauth_login_outcomes_total",
			Help: "Login attempts by classified outcome.",
		},
		[]string{"stage", "outcome"},
	)

	sessionCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vrcauth_session_calls_total",
			Help: "Authenticated provider calls by result.",
		},
		[]string{"result"},
	)

	pendingChallenges = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "vrcauth_pending_challenges",
			Help: "Login attempts currently awaiting a second factor.",
		},
	)
)

// Register installs the service metrics into the default registry. Safe to
// call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(loginOutcomes, sessionCalls, pendingChallenges)
	})
}

// ObserveLoginOutcome records one classified login step. stage is "begin"
// or "factor".
func ObserveLoginOutcome(stage, outcome string) {
	loginOutcomes.WithLabelValues(stage, outcome).Inc()
}

// ObserveSessionCall records one authenticated call result: "ok",
// "credential_expired", "rate_limited", or "transport_failure".
func ObserveSessionCall(result string) {
	sessionCalls.WithLabelValues(result).Inc()
}

// SetPendingChallenges tracks the size of the challenge-attempt registry.
func SetPendingChallenges(n int) {
	pendingChallenges.Set(float64(n))
}
