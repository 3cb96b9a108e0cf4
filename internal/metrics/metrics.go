package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	reservationsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "escape_room",
			Name:      "reservations_created_total",
			Help:      "Count of reservations created by source.",
		},
		[]string{"source"},
	)

	bookingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "escape_room",
			Name:      "booking_conflicts_total",
			Help:      "Count of booking attempts rejected because the slot was taken.",
		},
	)

	codeRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "escape_room",
			Name:      "confirmation_code_retries_total",
			Help:      "Count of confirmation code regenerations after a collision.",
		},
	)

	availabilityRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "escape_room",
			Name:      "availability_requests_total",
			Help:      "Count of availability computations by cache outcome.",
		},
		[]string{"cache"},
	)

	calendarFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "escape_room",
			Name:      "calendar_publish_failures_total",
			Help:      "Count of failed calendar publish attempts.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			reservationsCreated, bookingConflicts, codeRetries,
			availabilityRequests, calendarFailures,
		)
	})
}

func IncReservationCreated(source string) {
	reservationsCreated.WithLabelValues(source).Inc()
}

func IncBookingConflict() {
	bookingConflicts.Inc()
}

func IncCodeRetry() {
	codeRetries.Inc()
}

func IncAvailabilityRequest(cacheOutcome string) {
	availabilityRequests.WithLabelValues(cacheOutcome).Inc()
}

func IncCalendarFailure() {
	calendarFailures.Inc()
}
