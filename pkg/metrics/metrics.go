package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	seatReservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_seat_reservations_total",
			Help: "Seat reserve attempts by outcome",
		},
		[]string{"outcome"},
	)

	seatReleases = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ticketing_seats_released_total",
			Help: "Seats returned to inventory",
		},
	)

	promoRedemptions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_promo_redemptions_total",
			Help: "Promo redeem attempts by outcome",
		},
		[]string{"outcome"},
	)

	waitlistTakes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_waitlist_takes_total",
			Help: "Waitlist stock decrements by outcome",
		},
		[]string{"outcome"},
	)

	orderOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_order_operations_total",
			Help: "Order create/cancel operations",
		},
		[]string{"operation", "status"},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticketing_cache_lookups_total",
			Help: "Read-through cache lookups by keyspace and result",
		},
		[]string{"keyspace", "result"},
	)

	criticalSection = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ticketing_critical_section_duration_seconds",
			Help:    "Time spent holding a per-resource lock",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		},
		[]string{"resource"},
	)
)

func SeatReservation(outcome string) {
	seatReservations.WithLabelValues(outcome).Inc()
}

func SeatsReleased(n int) {
	if n > 0 {
		seatReleases.Add(float64(n))
	}
}

func PromoRedemption(outcome string) {
	promoRedemptions.WithLabelValues(outcome).Inc()
}

func WaitlistTake(outcome string) {
	waitlistTakes.WithLabelValues(outcome).Inc()
}

func OrderOperation(operation, status string) {
	orderOperations.WithLabelValues(operation, status).Inc()
}

// RecordCacheLookup counts a hit or miss against the key's prefix, so entity
// ids never become label values.
func RecordCacheLookup(key string, hit bool) {
	keyspace := key
	if i := strings.LastIndexByte(key, ':'); i > 0 {
		keyspace = key[:i]
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(keyspace, result).Inc()
}

// ObserveCriticalSection records how long a lock on resource was held since start.
func ObserveCriticalSection(resource string, start time.Time) {
	criticalSection.WithLabelValues(resource).Observe(time.Since(start).Seconds())
}

func Handler() http.Handler {
	return promhttp.Handler()
}

// Outcome maps an error to a short label.
func Outcome(err error) string {
	if err == nil {
		return "success"
	}
	return "rejected"
}
