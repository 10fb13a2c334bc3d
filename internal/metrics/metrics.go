// Package metrics exposes Prometheus instrumentation for the ingestion pipeline.
//
// All methods are safe to call on a nil *Metrics, which lets components run
// uninstrumented in tests.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains the pipeline counters and histograms.
type Metrics struct {
	registry *prometheus.Registry

	FetchTotal    *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
	MergeTotal    *prometheus.CounterVec
	MergeDuration prometheus.Histogram
	AlertsTotal   *prometheus.CounterVec
	RunsTotal     *prometheus.CounterVec
	RunDuration   prometheus.Histogram
}

// New creates and registers the pipeline metrics on a private registry.
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		FetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "fetch_total",
				Help:      "Total number of provider fetches per city",
			},
			[]string{"city", "status"}, // status: success, error
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "provider",
				Name:      "fetch_duration_seconds",
				Help:      "Duration of provider fetches",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"city"},
		),
		MergeTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "aggregator",
				Name:      "merges_total",
				Help:      "Total number of daily aggregate merges",
			},
			[]string{"status"},
		),
		MergeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "aggregator",
				Name:      "merge_duration_seconds",
				Help:      "Duration of load-merge-persist cycles",
				Buckets:   prometheus.DefBuckets,
			},
		),
		AlertsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "alerts",
				Name:      "total",
				Help:      "Alert notifications by outcome",
			},
			[]string{"status"}, // status: queued, sent, failed
		),
		RunsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "runs_total",
				Help:      "Scheduled collection runs by outcome",
			},
			[]string{"status"},
		),
		RunDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "scheduler",
				Name:      "run_duration_seconds",
				Help:      "Duration of scheduled collection runs",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			},
		),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.FetchTotal,
		m.FetchDuration,
		m.MergeTotal,
		m.MergeDuration,
		m.AlertsTotal,
		m.RunsTotal,
		m.RunDuration,
	)
	return m
}

// Handler returns an HTTP handler for exposing the metrics.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) ObserveFetch(city string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.FetchTotal.WithLabelValues(city, status(err)).Inc()
	m.FetchDuration.WithLabelValues(city).Observe(d.Seconds())
}

func (m *Metrics) ObserveMerge(err error, d time.Duration) {
	if m == nil {
		return
	}
	m.MergeTotal.WithLabelValues(status(err)).Inc()
	m.MergeDuration.Observe(d.Seconds())
}

// ObserveAlert counts an alert transition: queued, sent, failed or dropped.
func (m *Metrics) ObserveAlert(outcome string) {
	if m == nil {
		return
	}
	m.AlertsTotal.WithLabelValues(outcome).Inc()
}

// ObserveRun records a scheduler run; outcome is success, error or skipped.
func (m *Metrics) ObserveRun(outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
	if outcome != "skipped" {
		m.RunDuration.Observe(d.Seconds())
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
