// Package metrics exposes Prometheus instrumentation for dashboard
// evaluation and spec acquisition.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Spec load sources.
const (
	SourceFile      = "file"
	SourceUpload    = "upload"
	SourceGenerated = "generated"
	SourceFailed    = "failed"
)

// Generation outcomes.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

var (
	// rendersTotal counts full dashboard evaluations.
	rendersTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "leapdash_renders_total",
			Help: "Total number of dashboard evaluations",
		},
	)

	// renderSeconds observes the duration of one evaluation pass.
	renderSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "leapdash_render_seconds",
			Help:    "Time spent evaluating filters, KPIs and charts for one view",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
		},
	)

	// generationsTotal counts calls to the text-generation service.
	generationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leapdash_generations_total",
			Help: "Total number of spec generation attempts by outcome",
		},
		[]string{"outcome"},
	)

	// sessionsActive tracks browser sessions held in memory.
	sessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "leapdash_sessions",
			Help: "Number of dashboard sessions held in memory",
		},
	)

	// specLoadsTotal counts spec acquisitions by where the document came from.
	specLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "leapdash_spec_loads_total",
			Help: "Total number of chart spec loads by source",
		},
		[]string{"source"},
	)
)

// ObserveRender records one evaluation that took d.
func ObserveRender(d time.Duration) {
	rendersTotal.Inc()
	renderSeconds.Observe(d.Seconds())
}

// Generation records a generation attempt.
func Generation(err error) {
	if err != nil {
		generationsTotal.WithLabelValues(OutcomeError).Inc()
		return
	}
	generationsTotal.WithLabelValues(OutcomeOK).Inc()
}

// SpecLoad records where a spec came from.
func SpecLoad(source string) {
	specLoadsTotal.WithLabelValues(source).Inc()
}

// Sessions records the number of sessions held in memory.
func Sessions(n int) {
	sessionsActive.Set(float64(n))
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
