// Package metrics exposes Prometheus collectors for the archive and its index server.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Archive outcomes recorded by ObserveArchive.
const (
	OutcomeArchived  = "archived"
	OutcomeDuplicate = "duplicate"
	OutcomeInvalid   = "invalid_url"
	OutcomeNotFound  = "static_not_found"
	OutcomeFailed    = "failed"
)

var (
	archiveURLsTotal           *prometheus.CounterVec
	fetchDurationSeconds       *prometheus.HistogramVec
	screenshotsTotal           *prometheus.CounterVec
	materializeFailuresTotal   prometheus.Counter
	indexedSnapshots           prometheus.Gauge
	archiveBatchesTotal        prometheus.Counter
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	pacingDelaysSeconds        prometheus.Histogram

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		archiveURLsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alexandria_archive_urls_total",
				Help: "URLs processed by the archive pipeline, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "alexandria_fetch_duration_seconds",
				Help:    "Histogram of mirror fetch durations, labeled by engine.",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
			},
			[]string{"engine"},
		)

		screenshotsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alexandria_screenshots_total",
				Help: "Screenshot attempts, labeled by status.",
			},
			[]string{"status"},
		)

		materializeFailuresTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "alexandria_materialize_failures_total",
				Help: "Snapshots skipped while listing because their mirror could not be read.",
			},
		)

		indexedSnapshots = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "alexandria_indexed_snapshots",
				Help: "Number of snapshots shown by the last index render.",
			},
		)

		archiveBatchesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "alexandria_archive_batches_total",
				Help: "Total number of archive batches run.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		pacingDelaysSeconds = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "alexandria_pacing_delay_seconds",
				Help:    "Histogram of waits between successive fetches in a batch.",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
			},
		)
	})
}

// SanitizeSite lowercases a host and maps empty input to "unknown".
func SanitizeSite(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return "unknown"
	}
	return host
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveArchive counts one URL processed by the pipeline.
func ObserveArchive(site, outcome string) {
	archiveURLsTotal.WithLabelValues(SanitizeSite(site), outcome).Inc()
}

// ObserveFetch records how long a mirror fetch took.
func ObserveFetch(engine string, duration time.Duration) {
	fetchDurationSeconds.WithLabelValues(engine).Observe(duration.Seconds())
}

// ObserveScreenshot counts a screenshot attempt.
func ObserveScreenshot(status string) {
	screenshotsTotal.WithLabelValues(status).Inc()
}

// ObserveMaterializeFailure counts a snapshot skipped during listing.
func ObserveMaterializeFailure() {
	materializeFailuresTotal.Inc()
}

// SetIndexedSnapshots records the size of the last rendered index.
func SetIndexedSnapshots(n int) {
	indexedSnapshots.Set(float64(n))
}

// ObserveBatch counts an archive batch.
func ObserveBatch() {
	archiveBatchesTotal.Inc()
}

// ObservePacingDelay records a wait between fetches.
func ObservePacingDelay(d time.Duration) {
	pacingDelaysSeconds.Observe(d.Seconds())
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
