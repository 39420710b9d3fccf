// Package metrics exposes import counters on a dedicated Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Import outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeDryRun  = "dry_run"
	OutcomeEmpty   = "empty"
	OutcomeError   = "error"
)

// Recorder records import metrics. A nil *Recorder is valid and records
// nothing.
type Recorder struct {
	registry *prometheus.Registry
	imports  *prometheus.CounterVec
	members  prometheus.Histogram
	duration prometheus.Histogram
	stored   prometheus.Gauge
}

// New registers the import collectors plus the Go and process collectors.
func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		imports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sdsvg_imports_total",
			Help: "Workbook imports by outcome.",
		}, []string{"outcome"}),
		members: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sdsvg_import_members",
			Help:    "Members per successful import.",
			Buckets: prometheus.ExponentialBuckets(1, 4, 8),
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sdsvg_import_duration_seconds",
			Help:    "Time spent parsing and saving an import.",
			Buckets: prometheus.DefBuckets,
		}),
		stored: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sdsvg_stored_members",
			Help: "Members in the stored book.",
		}),
	}
	r.registry.MustRegister(
		r.imports,
		r.members,
		r.duration,
		r.stored,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveImport records one finished import.
func (r *Recorder) ObserveImport(outcome string, members int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.imports.WithLabelValues(outcome).Inc()
	r.duration.Observe(elapsed.Seconds())
	if outcome == OutcomeSuccess || outcome == OutcomeDryRun {
		r.members.Observe(float64(members))
	}
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// SetStoredMembers records the size of the stored book.
func (r *Recorder) SetStoredMembers(n int) {
	if r == nil {
		return
	}
	r.stored.Set(float64(n))
}
