package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks payment-gate activity over invoices. A nil receiver is
// valid and records nothing.
type Metrics struct {
	Gated *prometheus.CounterVec
	Paid  prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Gated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paygate_invoices_gated_total",
			Help: "Invoice gate transitions applied by the sweep, by outcome.",
		}, []string{"outcome"}),
		Paid: factory.NewCounter(prometheus.CounterOpts{
			Name: "paygate_invoices_paid_total",
			Help: "Invoices marked paid.",
		}),
	}
}

func (m *Metrics) IncrementGated(outcome string) {
	if m != nil {
		m.Gated.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) IncrementPaid() {
	if m != nil {
		m.Paid.Inc()
	}
}
