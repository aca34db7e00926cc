package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skincare",
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "skincare",
			Name:      "booking_created_total",
			Help:      "Count of bookings created.",
		},
	)

	bookingTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skincare",
			Name:      "booking_transitions_total",
			Help:      "Count of applied lifecycle operations by operation and resulting status.",
		},
		[]string{"operation", "status"},
	)

	rejectedTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skincare",
			Name:      "booking_rejected_transitions_total",
			Help:      "Count of lifecycle operations rejected by the state machine.",
		},
		[]string{"operation", "from"},
	)

	payments = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skincare",
			Name:      "payments_total",
			Help:      "Count of processed payments by method.",
		},
		[]string{"method"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingCreated, bookingTransitions, rejectedTransitions, payments)
	})
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncBookingCreated() {
	bookingCreated.Inc()
}

func IncTransition(operation, status string) {
	bookingTransitions.WithLabelValues(operation, status).Inc()
}

func IncRejected(operation, from string) {
	rejectedTransitions.WithLabelValues(operation, from).Inc()
}

func IncPayment(method string) {
	payments.WithLabelValues(method).Inc()
}
