package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers interview scheduling: bookings, refused bookings, bulk
// item outcomes and how long callers wait for an interviewer's calendar.
type Metrics struct {
	SlotsBooked       *prometheus.CounterVec
	ConflictsDetected prometheus.Counter
	BulkItems         *prometheus.CounterVec
	LockWait          prometheus.Histogram
	OperationDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SlotsBooked: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scholarops_interview_slots_total",
			Help: "Interview slots moved into a status, by status",
		}, []string{"status"}),
		ConflictsDetected: factory.NewCounter(prometheus.CounterOpts{
			Name: "scholarops_interview_conflicts_total",
			Help: "Overlapping bookings detected while scheduling",
		}),
		BulkItems: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scholarops_interview_bulk_items_total",
			Help: "Bulk scheduling items by outcome",
		}, []string{"outcome"}),
		LockWait: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scholarops_interview_lock_wait_seconds",
			Help:    "Time spent waiting for an interviewer calendar lock",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		OperationDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "scholarops_interview_operation_duration_seconds",
			Help:    "Duration of scheduler operations",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"operation"}),
	}
}

func (m *Metrics) IncrementSlots(status string) {
	m.SlotsBooked.WithLabelValues(status).Inc()
}

// AddConflicts records every conflicting booking found by one check.
func (m *Metrics) AddConflicts(n int) {
	m.ConflictsDetected.Add(float64(n))
}

func (m *Metrics) IncrementBulkItem(outcome string) {
	m.BulkItems.WithLabelValues(outcome).Inc()
}

// ObserveLockWait records the wait since start.
func (m *Metrics) ObserveLockWait(start time.Time) {
	m.LockWait.Observe(time.Since(start).Seconds())
}

func (m *Metrics) ObserveOperation(operation string, start time.Time) {
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
