package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the application lifecycle.
// Tracks transitions by target status, refused transitions by error code, and
// operation latency.
type Metrics struct {
	Transitions       *prometheus.CounterVec
	RefusedOperations *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
}

// New creates lifecycle metrics registered on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scholarops_application_transitions_total",
			Help: "Total number of applied application status transitions",
		}, []string{"to"}),
		RefusedOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scholarops_application_refused_operations_total",
			Help: "Lifecycle operations refused, by operation and error code",
		}, []string{"operation", "code"}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scholarops_application_operation_duration_seconds",
			Help:    "Duration of lifecycle operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

// IncrementTransition records a successful move into status to.
func (m *Metrics) IncrementTransition(to string) {
	m.Transitions.WithLabelValues(to).Inc()
}

// IncrementRefused records an operation that returned an error.
func (m *Metrics) IncrementRefused(operation, code string) {
	m.RefusedOperations.WithLabelValues(operation, code).Inc()
}

// ObserveOperation records the duration of a lifecycle operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
