package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks daily sweep runs. A nil receiver is valid and records
// nothing.
type Metrics struct {
	Runs        *prometheus.CounterVec
	Duration    prometheus.Histogram
	Contractors *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paygate_sweep_runs_total",
			Help: "Sweep runs, by outcome.",
		}, []string{"outcome"}),
		Duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "paygate_sweep_duration_seconds",
			Help:    "Wall time of one full sweep run.",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		Contractors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paygate_sweep_contractors_total",
			Help: "Contractors processed by the sweep, by outcome.",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) ObserveRun(outcome string, d time.Duration) {
	if m != nil {
		m.Runs.WithLabelValues(outcome).Inc()
		m.Duration.Observe(d.Seconds())
	}
}

func (m *Metrics) IncrementContractor(outcome string) {
	if m != nil {
		m.Contractors.WithLabelValues(outcome).Inc()
	}
}
