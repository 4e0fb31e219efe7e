package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	availabilityChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autorent",
			Name:      "availability_checks_total",
			Help:      "Count of availability checks by result.",
		},
		[]string{"result"},
	)

	staleResults = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "autorent",
			Name:      "stale_results_discarded_total",
			Help:      "Count of availability results discarded because a newer check was issued.",
		},
	)

	reservationWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autorent",
			Name:      "reservation_writes_total",
			Help:      "Count of reservation writes by operation and outcome.",
		},
		[]string{"op", "outcome"},
	)

	remindersSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autorent",
			Name:      "pickup_reminders_total",
			Help:      "Count of pickup reminders by outcome.",
		},
		[]string{"outcome"},
	)

	fleetReloads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autorent",
			Name:      "fleet_reloads_total",
			Help:      "Count of fleet.yaml reloads by outcome.",
		},
		[]string{"outcome"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autorent",
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(availabilityChecks, staleResults, reservationWrites, remindersSent, fleetReloads, httpRequests)
	})
}

// IncAvailabilityCheck records a check outcome: "available", "unavailable" or "error".
func IncAvailabilityCheck(result string) {
	availabilityChecks.WithLabelValues(result).Inc()
}

func IncStaleDiscarded() {
	staleResults.Inc()
}

// IncReservationWrite records a create/update with its outcome ("ok", "conflict", "error").
func IncReservationWrite(op, outcome string) {
	reservationWrites.WithLabelValues(op, outcome).Inc()
}

// IncReminder records a pickup reminder outcome ("sent" or "error").
func IncReminder(outcome string) {
	remindersSent.WithLabelValues(outcome).Inc()
}

// IncFleetReload records a fleet.yaml reload outcome ("ok" or "error").
func IncFleetReload(outcome string) {
	fleetReloads.WithLabelValues(outcome).Inc()
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
