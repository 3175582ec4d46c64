package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the professional lifecycle module.
// Tracks transition counts per outcome and cache effectiveness on the
// public listing path.
type Metrics struct {
	Transitions       *prometheus.CounterVec
	BookingsCancelled prometheus.Counter
	ListingCacheHits  prometheus.Counter
	ListingCacheMiss  prometheus.Counter
	RetireDuration    prometheus.Histogram
}

// New creates a new Metrics instance with all lifecycle metrics registered.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "medicineweb_professional_transitions_total",
			Help: "Professional lifecycle transitions by action and outcome",
		}, []string{"action", "outcome"}),
		BookingsCancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medicineweb_bookings_cancelled_on_retirement_total",
			Help: "Future bookings cancelled by the retirement cascade",
		}),
		ListingCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medicineweb_listing_cache_hits_total",
			Help: "Public directory listings served from cache",
		}),
		ListingCacheMiss: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medicineweb_listing_cache_misses_total",
			Help: "Public directory listings rebuilt from the store",
		}),
		RetireDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "medicineweb_retire_duration_seconds",
			Help:    "Duration of retirement transactions including the booking cascade",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// RecordTransition counts one lifecycle transition attempt.
func (m *Metrics) RecordTransition(action, outcome string) {
	m.Transitions.WithLabelValues(action, outcome).Inc()
}

// AddBookingsCancelled records the cascade size of one retirement.
func (m *Metrics) AddBookingsCancelled(n int) {
	m.BookingsCancelled.Add(float64(n))
}

// ObserveRetire records the duration of a Retire operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveRetire(start time.Time) {
	m.RetireDuration.Observe(time.Since(start).Seconds())
}
