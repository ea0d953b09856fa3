package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the document module. All methods are
// nil-safe so tests can pass a nil receiver.
type Metrics struct {
	// Upload classifications by resulting status
	Classified *prometheus.CounterVec

	// Sweep reclassifications by resulting status
	Reclassified *prometheus.CounterVec

	// Analyzer outages observed during uploads
	AnalyzerFailures prometheus.Counter
}

// New creates a new Metrics instance with all document module metrics registered.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Classified: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paygate_documents_classified_total",
			Help: "Total upload classifications by resulting status",
		}, []string{"status"}),

		Reclassified: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "paygate_documents_reclassified_total",
			Help: "Total sweep reclassifications by resulting status",
		}, []string{"status"}),

		AnalyzerFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "paygate_document_analyzer_failures_total",
			Help: "Total uploads stored without analysis because the analyzer was unavailable",
		}),
	}
}

// IncrementClassified records an upload classification outcome.
func (m *Metrics) IncrementClassified(status string) {
	if m != nil {
		m.Classified.WithLabelValues(status).Inc()
	}
}

// IncrementReclassified records a sweep reclassification.
func (m *Metrics) IncrementReclassified(status string) {
	if m != nil {
		m.Reclassified.WithLabelValues(status).Inc()
	}
}

// IncrementAnalyzerFailure records an analyzer outage.
func (m *Metrics) IncrementAnalyzerFailure() {
	if m != nil {
		m.AnalyzerFailures.Inc()
	}
}
