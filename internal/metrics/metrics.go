// Package metrics exposes Prometheus metrics for deep scan runs and the
// scan request worker.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Namespace is the namespace for all deepscan metrics.
	Namespace = "deepscan"
)

// Deep scan run outcomes used as the "outcome" label.
const (
	OutcomeCompleted    = "completed"
	OutcomeLimitReached = "limit_reached"
	OutcomeMissingRef   = "missing_ref"
	OutcomeFailed       = "failed"
)

// Recorder holds the deepscan Prometheus metrics.
// All methods are safe to call on a nil *Recorder, which records nothing.
type Recorder struct {
	registry *prometheus.Registry

	// Deep scan metrics
	RunsTotal      *prometheus.CounterVec
	RunDuration    prometheus.Histogram
	DiscoveredURLs prometheus.Counter
	WriteConflicts prometheus.Counter
	QueuedRequests prometheus.Counter

	// Worker metrics
	PageScansTotal *prometheus.CounterVec
	WorkersBusy    prometheus.Gauge
}

// NewRecorder creates a Recorder registered on a new registry that also
// carries the Go runtime and process collectors.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	r := &Recorder{registry: reg}

	r.initDeepScanMetrics(factory)
	r.initWorkerMetrics(factory)

	return r
}

// initDeepScanMetrics initializes deep scan run metrics.
func (r *Recorder) initDeepScanMetrics(factory promauto.Factory) {
	r.RunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "runs_total",
			Help:      "Total number of deep scan runs by outcome",
		},
		[]string{"outcome"},
	)

	r.RunDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of deep scan runs in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12), // 50ms to ~100s
		},
	)

	r.DiscoveredURLs = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "discovered_urls_total",
			Help:      "Total number of new URLs recorded on website scans",
		},
	)

	r.WriteConflicts = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "write_conflicts_total",
			Help:      "Total number of website scan writes rejected by a stale ETag",
		},
	)

	r.QueuedRequests = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "scan_requests_queued_total",
			Help:      "Total number of page scan requests queued by feed generation",
		},
	)
}

// initWorkerMetrics initializes scan request worker metrics.
func (r *Recorder) initWorkerMetrics(factory promauto.Factory) {
	r.PageScansTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "page_scans_total",
			Help:      "Total number of page scans run by the worker by status",
		},
		[]string{"status"},
	)

	r.WorkersBusy = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "workers_busy",
			Help:      "Number of page scans currently running",
		},
	)
}

// Handler returns the HTTP handler for the /metrics endpoint.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// RecordRun records the outcome and duration of a deep scan run.
func (r *Recorder) RecordRun(outcome string, duration time.Duration) {
	if r == nil {
		return
	}
	r.RunsTotal.WithLabelValues(outcome).Inc()
	r.RunDuration.Observe(duration.Seconds())
}

// RecordDiscoveredURLs adds n newly recorded URLs.
func (r *Recorder) RecordDiscoveredURLs(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.DiscoveredURLs.Add(float64(n))
}

// RecordWriteConflict records one ETag conflict. The attempt number is
// accepted so the method can be passed as the writer's conflict hook.
func (r *Recorder) RecordWriteConflict(_ int) {
	if r == nil {
		return
	}
	r.WriteConflicts.Inc()
}

// RecordQueued adds n queued scan requests.
func (r *Recorder) RecordQueued(n int) {
	if r == nil || n <= 0 {
		return
	}
	r.QueuedRequests.Add(float64(n))
}

// RecordPageScan records a page scan finished by the worker.
func (r *Recorder) RecordPageScan(status string) {
	if r == nil {
		return
	}
	r.PageScansTotal.WithLabelValues(status).Inc()
}

// RecordWorkerStarted increments the busy worker count.
func (r *Recorder) RecordWorkerStarted() {
	if r == nil {
		return
	}
	r.WorkersBusy.Inc()
}

// RecordWorkerFinished decrements the busy worker count.
func (r *Recorder) RecordWorkerFinished() {
	if r == nil {
		return
	}
	r.WorkersBusy.Dec()
}
