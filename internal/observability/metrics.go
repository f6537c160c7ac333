package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "carpool", Name: "rides_created_total", Help: "Rides posted, by type"},
		[]string{"type"},
	)
	BookingsInitiated = promauto.NewCounter(prometheus.CounterOpts{Namespace: "carpool", Name: "bookings_initiated_total", Help: "Booking intents recorded"})
	BookingsFinalized = promauto.NewCounter(prometheus.CounterOpts{Namespace: "carpool", Name: "bookings_finalized_total", Help: "Bookings confirmed with a verification code"})
	Cancellations     = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "carpool", Name: "cancellations_total", Help: "Cancellations, by cancelling role"},
		[]string{"role"},
	)
	Completions          = promauto.NewCounter(prometheus.CounterOpts{Namespace: "carpool", Name: "completions_total", Help: "PIN-verified completions"})
	CollusionFlags       = promauto.NewCounter(prometheus.CounterOpts{Namespace: "carpool", Name: "collusion_flags_total", Help: "Completions that hit the frequency cap"})
	VerificationFailures = promauto.NewCounter(prometheus.CounterOpts{Namespace: "carpool", Name: "verification_failures_total", Help: "Completion attempts with a wrong PIN"})
	RouteFallbacks       = promauto.NewCounter(prometheus.CounterOpts{Namespace: "carpool", Name: "route_fallbacks_total", Help: "Route estimates served by the haversine fallback"})
	SinkErrors           = promauto.NewCounter(prometheus.CounterOpts{Namespace: "carpool", Name: "sink_errors_total", Help: "Notifications the messaging sink failed to accept"})

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "carpool", Name: "http_requests_total", Help: "Total HTTP requests handled"},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "carpool",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency distribution",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
