package alerts

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "budgetguard_alert_publish_attempts_total",
			Help: "Total number of alert publish attempts",
		},
		[]string{"publisher", "result"},
	)

	dispatchFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "budgetguard_alert_dispatch_failures_total",
			Help: "Total number of alert dispatches that exhausted all retries",
		},
	)

	dispatchedAlerts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "budgetguard_alerts_dispatched_total",
			Help: "Total number of alerts successfully published",
		},
	)
)
