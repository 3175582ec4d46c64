package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the authority guard module.
type Metrics struct {
	AuthorityCreated     prometheus.Counter
	AuthorityDeactivated prometheus.Counter
	AuthorityReactivated prometheus.Counter
	StatsDuration        prometheus.Histogram
}

// New creates a new Metrics instance with all authority metrics registered.
func New() *Metrics {
	return &Metrics{
		AuthorityCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medicineweb_authorities_created_total",
			Help: "Total number of administrator authorities created",
		}),
		AuthorityDeactivated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medicineweb_authorities_deactivated_total",
			Help: "Total number of authority deactivations",
		}),
		AuthorityReactivated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "medicineweb_authorities_reactivated_total",
			Help: "Total number of authority reactivations",
		}),
		StatsDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "medicineweb_admin_stats_duration_seconds",
			Help:    "Duration of dashboard stats fan-out queries",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
	}
}

// ObserveStats records the duration of a dashboard stats query.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveStats(start time.Time) {
	m.StatsDuration.Observe(time.Since(start).Seconds())
}
