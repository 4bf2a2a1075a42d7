package metrics

import (
	"bufio"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/funding-rag-assistant/internal/core/domain"
)

const namespace = "frag"

// HTTPServerMetrics holds the API process metrics: HTTP traffic, the query
// pipeline and outbound call resilience.
type HTTPServerMetrics struct {
	registry *prometheus.Registry
	service  string
	*resilienceMetrics

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge

	queryTotal      *prometheus.CounterVec
	queryDuration   *prometheus.HistogramVec
	stageDuration   *prometheus.HistogramVec
	cacheLookups    *prometheus.CounterVec
	retrievedChunks prometheus.Histogram
	refreshLag      prometheus.Histogram
	refreshesTotal  *prometheus.CounterVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "http",
			Name:        "in_flight_requests",
			Help:        "Number of in-flight HTTP requests.",
			ConstLabels: constLabels,
		},
	)
	queryTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "queries_total",
			Help:      "Total answered queries by intent and outcome.",
		},
		[]string{"service", "intent", "outcome"},
	)
	queryDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "query_duration_seconds",
			Help:      "End-to-end query latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"service", "intent"},
	)
	stageDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "rag",
			Name:      "stage_duration_seconds",
			Help:      "Query pipeline stage latency in seconds.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"service", "stage"},
	)
	cacheLookups := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Response cache lookups by result.",
		},
		[]string{"service", "result"},
	)
	retrievedChunks := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "rag",
			Name:        "retrieved_chunks",
			Help:        "Distribution of retrieved candidates per query.",
			Buckets:     []float64{0, 1, 2, 3, 5, 8, 13, 21},
			ConstLabels: constLabels,
		},
	)
	refreshLag := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace:   namespace,
			Subsystem:   "corpus",
			Name:        "refresh_lag_seconds",
			Help:        "Delay between index completion and corpus reload.",
			Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
			ConstLabels: constLabels,
		},
	)
	refreshesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "corpus",
			Name:      "refreshes_total",
			Help:      "Corpus reloads by status.",
		},
		[]string{"service", "status"},
	)
	resilience := newResilienceMetrics(service)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		queryTotal,
		queryDuration,
		stageDuration,
		cacheLookups,
		retrievedChunks,
		refreshLag,
		refreshesTotal,
	)
	resilience.register(registry)

	return &HTTPServerMetrics{
		registry:          registry,
		service:           service,
		resilienceMetrics: resilience,
		requestTotal:      requestTotal,
		requestDuration:   requestDuration,
		requestInFlight:   requestInFlight,
		queryTotal:        queryTotal,
		queryDuration:     queryDuration,
		stageDuration:     stageDuration,
		cacheLookups:      cacheLookups,
		retrievedChunks:   retrievedChunks,
		refreshLag:        refreshLag,
		refreshesTotal:    refreshesTotal,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		path := routeLabel(r)
		m.requestTotal.WithLabelValues(
			m.service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(m.service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

// routeLabel uses the matched mux pattern so unknown paths share one label.
func routeLabel(r *http.Request) string {
	if r.Pattern != "" {
		return r.Pattern
	}
	return "unmatched"
}

func (m *HTTPServerMetrics) ObserveStage(stage string, elapsed time.Duration) {
	m.stageDuration.WithLabelValues(m.service, stage).Observe(elapsed.Seconds())
}

func (m *HTTPServerMetrics) ObserveQuery(intent domain.Intent, outcome string, elapsed time.Duration) {
	label := string(intent)
	if label == "" {
		label = "none"
	}
	m.queryTotal.WithLabelValues(m.service, label, outcome).Inc()
	m.queryDuration.WithLabelValues(m.service, label).Observe(elapsed.Seconds())
}

func (m *HTTPServerMetrics) ObserveCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.cacheLookups.WithLabelValues(m.service, result).Inc()
}

func (m *HTTPServerMetrics) ObserveCandidates(count int) {
	m.retrievedChunks.Observe(float64(count))
}

// ObserveCorpusRefresh records a corpus reload triggered by the indexer.
func (m *HTTPServerMetrics) ObserveCorpusRefresh(lag time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.refreshesTotal.WithLabelValues(m.service, status).Inc()
	if err == nil && lag >= 0 {
		m.refreshLag.Observe(lag.Seconds())
	}
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *statusRecorder) Flush() {
	flusher, ok := w.ResponseWriter.(http.Flusher)
	if ok {
		flusher.Flush()
	}
}

func (w *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hijacker, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("response writer does not implement http.Hijacker")
	}
	return hijacker.Hijack()
}
