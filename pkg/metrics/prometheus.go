package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	framesTotal   *prometheus.CounterVec
	framesDropped *prometheus.CounterVec
	progress      *prometheus.GaugeVec
	errorsTotal   *prometheus.CounterVec
	latency       *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		framesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hedgefund_frames_total",
				Help: "Total number of stream frames decoded by event type",
			},
			[]string{"type"},
		),
		framesDropped: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hedgefund_frames_dropped_total",
				Help: "Total number of stream frames dropped",
			},
			[]string{"reason"},
		),
		progress: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "hedgefund_run_progress_percent",
				Help: "Current run progress per source key",
			},
			[]string{"source_key"},
		),
		errorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "hedgefund_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "hedgefund_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordFrame records one decoded frame by event type.
func (r *Recorder) RecordFrame(eventType string) {
	r.framesTotal.WithLabelValues(eventType).Inc()
}

// RecordFrameDropped records a dropped frame.
func (r *Recorder) RecordFrameDropped(reason string) {
	r.framesDropped.WithLabelValues(reason).Inc()
}

// RecordProgress records the current progress gauge for a source key.
func (r *Recorder) RecordProgress(sourceKey string, percent int) {
	r.progress.WithLabelValues(sourceKey).Set(float64(percent))
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errorsTotal.WithLabelValues(kind).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
