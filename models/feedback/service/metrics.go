package service

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	submissions    *prometheus.CounterVec
	appendLatency  *prometheus.HistogramVec
	derivations    *prometheus.CounterVec
	activeWatchers prometheus.Gauge
}

var (
	metricsInstance *metrics
	metricsOnce     sync.Once
	defaultRegistry = prometheus.DefaultRegisterer
)

func newMetrics() *metrics {
	metricsOnce.Do(func() {
		metricsInstance = &metrics{
			submissions: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "feedback_submissions_total",
				Help: "Feedback submissions by outcome",
			}, []string{"outcome"}),
			appendLatency: promauto.With(defaultRegistry).NewHistogramVec(prometheus.HistogramOpts{
				Name:    "feedback_append_duration_seconds",
				Help:    "Time taken by the storage provider to append a record",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			}, []string{"provider"}),
			derivations: promauto.With(defaultRegistry).NewCounterVec(prometheus.CounterOpts{
				Name: "feedback_projection_derivations_total",
				Help: "Latest-feedback states derived, by state",
			}, []string{"state"}),
			activeWatchers: promauto.With(defaultRegistry).NewGauge(prometheus.GaugeOpts{
				Name: "feedback_projection_active_watchers",
				Help: "Current number of live latest-feedback watchers",
			}),
		}
	})
	return metricsInstance
}

// For testing purposes - reset metrics
func resetMetricsForTesting() {
	defaultRegistry = prometheus.NewRegistry()
	metricsInstance = nil
	metricsOnce = sync.Once{}
}
