package tracker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	spendIncrements = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "budgetguard_spend_increments_total",
			Help: "Total number of spend increments applied",
		},
	)

	alertClaims = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "budgetguard_alert_claims_total",
			Help: "Total number of alert cooldown claim attempts by outcome",
		},
		[]string{"outcome"},
	)

	swallowedDispatchErrs = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "budgetguard_swallowed_dispatch_errors_total",
			Help: "Total number of dispatch failures absorbed without failing the increment",
		},
	)
)
