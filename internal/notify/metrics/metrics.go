package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks reminder dispatch outcomes. A nil receiver is valid and
// records nothing.
type Metrics struct {
	Dispatched *prometheus.CounterVec
	Skipped    prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Dispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paygate_notifications_dispatched_total",
			Help: "Reminder dispatch attempts, by outcome.",
		}, []string{"outcome"}),
		Skipped: factory.NewCounter(prometheus.CounterOpts{
			Name: "paygate_notifications_skipped_total",
			Help: "Reminders skipped because the horizon was already covered.",
		}),
	}
}

func (m *Metrics) IncrementDispatched(outcome string) {
	if m != nil {
		m.Dispatched.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementSkipped() {
	if m != nil {
		m.Skipped.Inc()
	}
}
