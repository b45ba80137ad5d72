package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jukebox",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "jukebox",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "jukebox",
		Name:      "cache_hits_total",
		Help:      "Total number of playback record cache hits.",
	})

	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "jukebox",
		Name:      "cache_misses_total",
		Help:      "Total number of playback record cache misses.",
	})

	ExtractionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jukebox",
		Name:      "extractions_total",
		Help:      "Total extraction attempts by result.",
	}, []string{"result"})

	ExtractionDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "jukebox",
		Name:      "extraction_duration_seconds",
		Help:      "Extraction duration in seconds, including stream selection.",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30},
	})

	ProxiedBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "jukebox",
		Name:      "proxied_bytes_total",
		Help:      "Total audio bytes streamed through the proxy.",
	})

	UpstreamFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "jukebox",
		Name:      "upstream_failures_total",
		Help:      "Audio proxy upstream failures by stage.",
	}, []string{"stage"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		CacheHitsTotal,
		CacheMissesTotal,
		ExtractionsTotal,
		ExtractionDuration,
		ProxiedBytesTotal,
		UpstreamFailuresTotal,
	)
}
