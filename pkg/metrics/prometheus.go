package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements repository.Metrics using Prometheus.
type Recorder struct {
	analyses  *prometheus.CounterVec
	errors    *prometheus.CounterVec
	policies  *prometheus.CounterVec
	lastIBNR  *prometheus.GaugeVec
	cacheHits *prometheus.CounterVec
	latency   *prometheus.HistogramVec
}

// New creates a recorder registered on reg.
func New(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		analyses: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reserving_analyses_total",
				Help: "Completed reserve analyses",
			},
			[]string{"source", "method"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reserving_errors_total",
				Help: "Total number of errors encountered",
			},
			[]string{"type"},
		),
		policies: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reserving_policies_processed_total",
				Help: "Policy rows fed into analyses",
			},
			[]string{"source"},
		),
		lastIBNR: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "reserving_last_total_ibnr",
				Help: "Total IBNR reserve of the most recent analysis",
			},
			[]string{"source"},
		),
		cacheHits: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "reserving_result_cache_total",
				Help: "Result cache lookups",
			},
			[]string{"result"},
		),
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "reserving_operation_duration_seconds",
				Help:    "Duration of operations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
	}
}

// RecordAnalysis counts a completed analysis.
func (r *Recorder) RecordAnalysis(source, method string) {
	r.analyses.WithLabelValues(source, method).Inc()
}

// RecordError records an error occurrence.
func (r *Recorder) RecordError(kind string) {
	r.errors.WithLabelValues(kind).Inc()
}

// RecordPolicies adds n processed policy rows.
func (r *Recorder) RecordPolicies(source string, n int) {
	r.policies.WithLabelValues(source).Add(float64(n))
}

// RecordReserve records the total IBNR of the latest analysis.
func (r *Recorder) RecordReserve(source string, totalIBNR float64) {
	r.lastIBNR.WithLabelValues(source).Set(totalIBNR)
}

// RecordCache records a cache hit or miss.
func (r *Recorder) RecordCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	r.cacheHits.WithLabelValues(result).Inc()
}

// RecordLatency records operation latency in seconds.
func (r *Recorder) RecordLatency(op string, seconds float64) {
	r.latency.WithLabelValues(op).Observe(seconds)
}
