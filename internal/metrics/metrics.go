/*
Package metrics exposes Prometheus collectors for backup runs.

Collectors live in a private registry. One-shot invocations write them to
a node_exporter textfile; the daemon can also serve them over HTTP.

  - config_archiver_runs_total{result}: finished runs, result=success|failure
  - config_archiver_entries_total: files written into archives
  - config_archiver_items_skipped_total: configured items that did not exist
  - config_archiver_file_errors_total: files or items that could not be archived
  - config_archiver_archives_pruned_total: archives removed by retention
  - config_archiver_prune_errors_total: failed pruning passes
  - config_archiver_last_success_timestamp_seconds
  - config_archiver_last_archive_size_bytes
  - config_archiver_run_duration_seconds (histogram)
*/
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "config_archiver"

// Metrics is safe for concurrent use. A nil *Metrics records nothing.
type Metrics struct {
	reg *prometheus.Registry

	runs            *prometheus.CounterVec
	entries         prometheus.Counter
	itemsSkipped    prometheus.Counter
	fileErrors      prometheus.Counter
	pruned          prometheus.Counter
	pruneErrors     prometheus.Counter
	lastSuccess     prometheus.Gauge
	lastArchiveSize prometheus.Gauge
	runDuration     prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Backup runs by result.",
		}, []string{"result"}),
		entries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "entries_total",
			Help:      "Files written into archives.",
		}),
		itemsSkipped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "items_skipped_total",
			Help:      "Configured items skipped because they do not exist.",
		}),
		fileErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "file_errors_total",
			Help:      "Files or items that could not be archived.",
		}),
		pruned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archives_pruned_total",
			Help:      "Archives deleted by the retention pass.",
		}),
		pruneErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prune_errors_total",
			Help:      "Retention passes that stopped on an error.",
		}),
		lastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful backup run.",
		}),
		lastArchiveSize: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_archive_size_bytes",
			Help:      "Size of the most recently written archive.",
		}),
		runDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of backup runs.",
			Buckets:   []float64{.1, .5, 1, 5, 10, 30, 60, 300},
		}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

func (m *Metrics) EntryAdded() {
	if m != nil {
		m.entries.Inc()
	}
}

func (m *Metrics) ItemSkipped() {
	if m != nil {
		m.itemsSkipped.Inc()
	}
}

func (m *Metrics) FileFailed() {
	if m != nil {
		m.fileErrors.Inc()
	}
}

func (m *Metrics) Pruned(n int) {
	if m != nil && n > 0 {
		m.pruned.Add(float64(n))
	}
}

func (m *Metrics) PruneFailed() {
	if m != nil {
		m.pruneErrors.Inc()
	}
}

// RunSucceeded records a completed run that wrote an archive of size bytes.
func (m *Metrics) RunSucceeded(at time.Time, took time.Duration, size int64) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues("success").Inc()
	m.runDuration.Observe(took.Seconds())
	m.lastSuccess.Set(float64(at.Unix()))
	m.lastArchiveSize.Set(float64(size))
}

func (m *Metrics) RunFailed(took time.Duration) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues("failure").Inc()
	m.runDuration.Observe(took.Seconds())
}

// WriteTextfile atomically writes all collectors to path in the text
// exposition format.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.reg)
}

// Handler serves the registry at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}
