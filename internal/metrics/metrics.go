// Package metrics exposes sweep counters in the Prometheus format.
//
// All methods are safe on a nil *Collector so callers that run without
// metrics can pass nil.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "blobsweep"

const (
	RunSuccess = "success"
	RunFailure = "failure"
)

type Collector struct {
	registry *prometheus.Registry

	objects     *prometheus.CounterVec
	runs        *prometheus.CounterVec
	runDuration *prometheus.HistogramVec
	lastSuccess prometheus.Gauge
}

// NewCollector registers the sweep metrics on registry, or on a fresh registry
// when registry is nil.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		objects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_total",
			Help:      "Objects processed by category and outcome.",
		}, []string{"category", "outcome", "dry_run"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Completed sweep runs by status.",
		}, []string{"status", "dry_run"}),
		runDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of sweep runs.",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"status"}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful live run.",
		}),
	}

	registry.MustRegister(c.objects, c.runs, c.runDuration, c.lastSuccess)
	return c
}

// ObjectsProcessed adds n objects with the given outcome to category.
func (c *Collector) ObjectsProcessed(category, outcome string, dryRun bool, n int) {
	if c == nil || n <= 0 {
		return
	}
	c.objects.WithLabelValues(category, outcome, strconv.FormatBool(dryRun)).Add(float64(n))
}

func (c *Collector) RunFinished(status string, dryRun bool, d time.Duration, finished time.Time) {
	if c == nil {
		return
	}
	c.runs.WithLabelValues(status, strconv.FormatBool(dryRun)).Inc()
	c.runDuration.WithLabelValues(status).Observe(d.Seconds())
	if status == RunSuccess && !dryRun {
		c.lastSuccess.Set(float64(finished.Unix()))
	}
}

// Handler serves the collector's registry.
func (c *Collector) Handler() http.Handler {
	if c == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})
}
