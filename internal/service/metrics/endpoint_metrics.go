package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Endpoints tracks latency and failures of the analysis endpoints, labelled
// by a fixed endpoint name rather than the request path.
type Endpoints struct {
	latency *prometheus.HistogramVec
	errors  *prometheus.CounterVec
}

func NewEndpoints(reg prometheus.Registerer) *Endpoints {
	f := promauto.With(reg)
	return &Endpoints{
		latency: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "reserving",
				Subsystem: "api",
				Name:      "latency_seconds",
				Help:      "Latency of analysis endpoints",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"endpoint"},
		),
		errors: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "reserving",
				Subsystem: "api",
				Name:      "errors_total",
				Help:      "Errors by analysis endpoint",
			},
			[]string{"endpoint"},
		),
	}
}

// Observe records one call that started at start and ended with err.
func (e *Endpoints) Observe(endpoint string, start time.Time, err error) {
	if e == nil {
		return
	}
	e.latency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		e.errors.WithLabelValues(endpoint).Inc()
	}
}
