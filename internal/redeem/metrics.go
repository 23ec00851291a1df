package redeem

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	redemptionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cadence",
		Subsystem: "redeem",
		Name:      "redemptions_total",
		Help:      "Completed key redemptions by key type.",
	}, []string{"key_type"})

	redemptionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cadence",
		Subsystem: "redeem",
		Name:      "redemption_failures_total",
		Help:      "Rejected redemption attempts by reason.",
	}, []string{"reason"})
)
