package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pscheid92/codedrop/internal/domain"
)

// PipelineMetrics holds Prometheus metrics for the ingestion pipeline.
type PipelineMetrics struct {
	EventsProcessed    *prometheus.CounterVec
	ProcessingDuration prometheus.Histogram
	Resolutions        *prometheus.CounterVec
}

// NewPipelineMetrics creates and registers pipeline metrics on the given registry.
func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		EventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "events_processed_total",
			Help:      "Total number of inbound events processed, by outcome.",
		}, []string{"outcome"}),
		ProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "processing_duration_seconds",
			Help:      "Duration of one pipeline pass in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10},
		}),
		Resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "resolutions_total",
			Help:      "Total number of channel identity resolutions, by confidence.",
		}, []string{"confidence"}),
	}

	reg.MustRegister(m.EventsProcessed, m.ProcessingDuration, m.Resolutions)
	return m
}

func (m *PipelineMetrics) ObserveEvent(outcome string, duration time.Duration) {
	m.EventsProcessed.WithLabelValues(outcome).Inc()
	m.ProcessingDuration.Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObserveResolution(confidence domain.Confidence) {
	m.Resolutions.WithLabelValues(confidence.String()).Inc()
}
