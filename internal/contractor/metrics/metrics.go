package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the contractor module. All methods are
// nil-safe so tests can pass a nil receiver.
type Metrics struct {
	// Recompute outcomes by derived verification status
	RecomputeOutcome *prometheus.CounterVec

	// Recompute latency including document loading
	RecomputeLatency prometheus.Histogram

	// Payment gate transitions by resulting status
	GateTransitions *prometheus.CounterVec
}

// New creates a new Metrics instance with all contractor module metrics registered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RecomputeOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paygate_contractor_recompute_total",
			Help: "Total compliance recomputations by derived verification status",
		}, []string{"status"}),

		RecomputeLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "paygate_contractor_recompute_duration_seconds",
			Help:    "Duration of compliance recomputation including document loading",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		GateTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paygate_payment_gate_transitions_total",
			Help: "Total payment gate transitions by resulting status",
		}, []string{"to"}),
	}
}

// ObserveRecompute records one recomputation outcome and its duration.
func (m *Metrics) ObserveRecompute(status string, d time.Duration) {
	if m != nil {
		m.RecomputeOutcome.WithLabelValues(status).Inc()
		m.RecomputeLatency.Observe(d.Seconds())
	}
}

// IncrementGateTransition records a payment gate change.
func (m *Metrics) IncrementGateTransition(to string) {
	if m != nil {
		m.GateTransitions.WithLabelValues(to).Inc()
	}
}
