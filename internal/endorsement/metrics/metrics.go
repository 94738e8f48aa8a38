package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Items         *prometheus.CounterVec
	BatchSize     prometheus.Histogram
	BatchDuration prometheus.Histogram
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Items: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "scholarops_endorsement_items_total",
			Help: "Bulk endorsement items by outcome",
		}, []string{"outcome"}),
		BatchSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scholarops_endorsement_batch_size",
			Help:    "Applications per bulk endorsement request",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 200},
		}),
		BatchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "scholarops_endorsement_batch_duration_seconds",
			Help:    "Duration of bulk endorsement requests",
			Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}),
	}
}

func (m *Metrics) IncrementItem(outcome string) {
	m.Items.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveBatch(size int, start time.Time) {
	m.BatchSize.Observe(float64(size))
	m.BatchDuration.Observe(time.Since(start).Seconds())
}
