package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	fetches     *prometheus.CounterVec
	provErrors  *prometheus.CounterVec
	validations *prometheus.CounterVec
	drift       *prometheus.GaugeVec
	retrains    *prometheus.CounterVec
	degraded    prometheus.Gauge
	latency     *prometheus.HistogramVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		fetches: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predwatch_fetches_total",
				Help: "Successful data fetches by answering source",
			},
			[]string{"source", "ticker"},
		),
		provErrors: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predwatch_provider_errors_total",
				Help: "Provider failures skipped by the fallback chain",
			},
			[]string{"provider"},
		),
		validations: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predwatch_validations_total",
				Help: "Prediction records resolved by outcome",
			},
			[]string{"outcome"},
		),
		drift: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "predwatch_feature_drifted",
				Help: "1 when the latest drift test flagged the feature",
			},
			[]string{"feature"},
		),
		retrains: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "predwatch_retrain_cycles_total",
				Help: "Retrain decision cycles by result",
			},
			[]string{"result"},
		),
		degraded: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "predwatch_persistence_degraded",
				Help: "1 while the primary durable backend is unreachable",
			},
		),
		latency: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "predwatch_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordFetch records a successful fetch and which source answered.
func (r *Recorder) RecordFetch(source, ticker string) {
	r.fetches.WithLabelValues(source, ticker).Inc()
}

// RecordProviderError records a skipped provider failure.
func (r *Recorder) RecordProviderError(provider string) {
	r.provErrors.WithLabelValues(provider).Inc()
}

// RecordValidation records a ledger resolution outcome (validated, expired).
func (r *Recorder) RecordValidation(outcome string) {
	r.validations.WithLabelValues(outcome).Inc()
}

// RecordDrift records the latest drift flag per feature.
func (r *Recorder) RecordDrift(feature string, drifted bool) {
	v := 0.0
	if drifted {
		v = 1.0
	}
	r.drift.WithLabelValues(feature).Set(v)
}

// RecordRetrain records a retrain cycle result (approved, rejected, failed).
func (r *Recorder) RecordRetrain(result string) {
	r.retrains.WithLabelValues(result).Inc()
}

// SetPersistenceDegraded flips the degraded-backend gauge.
func (r *Recorder) SetPersistenceDegraded(degraded bool) {
	if degraded {
		r.degraded.Set(1)
		return
	}
	r.degraded.Set(0)
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
