package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry
	service  string
	*resilienceMetrics

	batchTotal    *prometheus.CounterVec
	batchDuration *prometheus.HistogramVec
	batchInFlight prometheus.Gauge
	chunksIndexed prometheus.Counter
	lastIndexedAt prometheus.Gauge
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()
	constLabels := prometheus.Labels{"service": service}

	batchTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "index_batches_total",
			Help:      "Total embedded and upserted batches by status.",
		},
		[]string{"service", "status"},
	)
	batchDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "index_batch_duration_seconds",
			Help:      "Batch indexing duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	batchInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "index_batches_in_flight",
			Help:        "Number of batches being indexed.",
			ConstLabels: constLabels,
		},
	)
	chunksIndexed := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "chunks_indexed_total",
			Help:        "Total chunks written to the vector index.",
			ConstLabels: constLabels,
		},
	)
	lastIndexedAt := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace:   namespace,
			Subsystem:   "worker",
			Name:        "last_index_timestamp_seconds",
			Help:        "Unix time of the last successful index run.",
			ConstLabels: constLabels,
		},
	)
	resilience := newResilienceMetrics(service)

	registry.MustRegister(batchTotal, batchDuration, batchInFlight, chunksIndexed, lastIndexedAt)
	resilience.register(registry)

	return &WorkerMetrics{
		registry:          registry,
		service:           service,
		resilienceMetrics: resilience,
		batchTotal:        batchTotal,
		batchDuration:     batchDuration,
		batchInFlight:     batchInFlight,
		chunksIndexed:     chunksIndexed,
		lastIndexedAt:     lastIndexedAt,
	}
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartBatch() {
	m.batchInFlight.Inc()
}

func (m *WorkerMetrics) FinishBatch(chunks int, elapsed time.Duration, err error) {
	m.batchInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	} else {
		m.chunksIndexed.Add(float64(chunks))
	}

	m.batchTotal.WithLabelValues(m.service, status).Inc()
	m.batchDuration.WithLabelValues(m.service, status).Observe(elapsed.Seconds())
}

func (m *WorkerMetrics) MarkIndexed(at time.Time) {
	m.lastIndexedAt.Set(float64(at.Unix()))
}
