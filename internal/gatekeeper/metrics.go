package gatekeeper

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// checksTotal counts command permission checks by outcome.
	checksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cadence",
		Subsystem: "gatekeeper",
		Name:      "checks_total",
		Help:      "Command permission checks by outcome.",
	}, []string{"outcome"})

	// checkErrors counts checks that failed before reaching a decision.
	checkErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "cadence",
		Subsystem: "gatekeeper",
		Name:      "check_errors_total",
		Help:      "Permission checks aborted by a store failure.",
	})
)
