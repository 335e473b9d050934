// Package metrics holds the Prometheus collectors for the booking engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SeatsBooked counts successful seat bookings.
var SeatsBooked = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "carpool",
	Name:      "seats_booked_total",
	Help:      "Seats booked by passengers.",
})

// Cancellations counts cancellations, labelled by who cancelled.
var Cancellations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "carpool",
	Name:      "cancellations_total",
	Help:      "Ride cancellations by actor (passenger, captain).",
}, []string{"by"})

// PenaltiesCharged counts cancellations that carried a penalty.
var PenaltiesCharged = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "carpool",
	Name:      "penalties_charged_total",
	Help:      "Cancellation penalties charged, by actor.",
}, []string{"by"})

// RidesCreated counts rides posted by captains.
var RidesCreated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "carpool",
	Name:      "rides_created_total",
	Help:      "Rides posted by captains.",
})

// RidesCompleted counts rides marked completed.
var RidesCompleted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "carpool",
	Name:      "rides_completed_total",
	Help:      "Rides marked completed.",
})

// Ratings counts rating submissions by who was rated.
var Ratings = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "carpool",
	Name:      "ratings_total",
	Help:      "Ratings submitted, by rated role.",
}, []string{"target"})

// Rejections counts engine operations rejected by a business rule.
var Rejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "carpool",
	Name:      "rejections_total",
	Help:      "Engine operations rejected before changing state.",
}, []string{"operation"})

// PersistFailures counts snapshot writes that failed.
var PersistFailures = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "carpool",
	Name:      "persist_failures_total",
	Help:      "Snapshot writes that failed; state stays in memory.",
})

// PersistDuration observes how long snapshot writes take.
var PersistDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "carpool",
	Name:      "persist_duration_seconds",
	Help:      "Duration of full snapshot writes.",
	Buckets:   prometheus.DefBuckets,
})

// RedisCommands counts Redis commands by key space and result.
var RedisCommands = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "carpool",
	Name:      "redis_commands_total",
	Help:      "Redis commands by key space (session, idempotency, other) and result (ok, miss, error).",
}, []string{"collection", "result"})
