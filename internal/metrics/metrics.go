// Package metrics exposes Prometheus metrics for registrations, recognitions and corpus scans.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var registry = prometheus.NewRegistry()

var (
	// Scan durations in seconds; a full corpus scan is sub-millisecond to a few seconds.
	scanBuckets = []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

	RequestsTotal = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "facereg_requests_total",
			Help: "Registration and recognition requests by outcome",
		},
		[]string{"operation", "outcome"},
	)

	ScanRecordsTotal = promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "facereg_scan_records_total",
			Help: "Stored records visited by corpus scans",
		},
		[]string{"result"}, // valid or skipped
	)

	ScanDuration = promauto.With(registry).NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "facereg_scan_duration_seconds",
			Help:    "Time spent validating and scoring the corpus",
			Buckets: scanBuckets,
		},
		[]string{"operation"},
	)

	BestSimilarity = promauto.With(registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "facereg_best_similarity",
			Help:    "Highest similarity found per request",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)
)

var initOnce sync.Once

// Initialize registers process collectors. Safe to call more than once.
func Initialize() {
	initOnce.Do(func() {
		registry.MustRegister(
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			collectors.NewGoCollector(),
		)
	})
}

// Handler serves the private registry.
func Handler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// Observer records scan statistics. It satisfies facematch.ScanObserver.
type Observer struct{}

// ObserveScan records one corpus scan.
func (Observer) ObserveScan(mode string, valid, skipped int, elapsed time.Duration) {
	ScanRecordsTotal.WithLabelValues("valid").Add(float64(valid))
	ScanRecordsTotal.WithLabelValues("skipped").Add(float64(skipped))
	ScanDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// ObserveOutcome counts a finished request. hasScore is false when nothing was compared.
func ObserveOutcome(operation, outcome string, best float64, hasScore bool) {
	RequestsTotal.WithLabelValues(operation, outcome).Inc()
	if hasScore {
		BestSimilarity.Observe(best)
	}
}
