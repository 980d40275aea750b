package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the HTTP
// surface and the Ed-Fi synchronization pipeline.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	edfiDuration    *prometheus.HistogramVec
	edfiTotal       *prometheus.CounterVec
	syncOutcomes    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
}

// NewMetricsService registers the collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	edfiDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "edfi_request_duration_seconds",
		Help:    "Duration of outbound Ed-Fi ODS requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "resource", "status"})

	edfiTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "edfi_requests_total",
		Help: "Total outbound Ed-Fi ODS requests",
	}, []string{"method", "resource", "status"})

	syncOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "edfi_sync_outcomes_total",
		Help: "Per-entity Ed-Fi sync outcomes",
	}, []string{"resource", "outcome"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})
	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, edfiDuration, edfiTotal, syncOutcomes, cacheHits, cacheMisses, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		edfiDuration:    edfiDuration,
		edfiTotal:       edfiTotal,
		syncOutcomes:    syncOutcomes,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records inbound request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// ObserveEdFiRequest records an outbound ODS request. A zero status marks a
// transport failure.
func (m *MetricsService) ObserveEdFiRequest(method, resource string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.edfiDuration.WithLabelValues(method, resource, labelStatus).Observe(duration.Seconds())
	m.edfiTotal.WithLabelValues(method, resource, labelStatus).Inc()
}

// ObserveSyncOutcome counts one per-entity sync outcome.
func (m *MetricsService) ObserveSyncOutcome(resource, outcome string) {
	if m == nil {
		return
	}
	m.syncOutcomes.WithLabelValues(resource, outcome).Inc()
}

// RecordCacheOperation counts a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}
