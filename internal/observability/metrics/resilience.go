package metrics

import "github.com/prometheus/client_golang/prometheus"

var breakerStates = []string{"closed", "half-open", "open"}

// resilienceMetrics implements the resilience executor observer.
type resilienceMetrics struct {
	service      string
	retriesTotal *prometheus.CounterVec
	breakerState *prometheus.GaugeVec
}

func newResilienceMetrics(service string) *resilienceMetrics {
	return &resilienceMetrics{
		service: service,
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "outbound",
				Name:      "retries_total",
				Help:      "Retried outbound calls by operation.",
			},
			[]string{"service", "operation"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "outbound",
				Name:      "breaker_state",
				Help:      "Circuit breaker state by operation; 1 marks the current state.",
			},
			[]string{"service", "operation", "state"},
		),
	}
}

func (m *resilienceMetrics) register(registry *prometheus.Registry) {
	registry.MustRegister(m.retriesTotal, m.breakerState)
}

func (m *resilienceMetrics) ObserveRetry(operation string) {
	m.retriesTotal.WithLabelValues(m.service, operation).Inc()
}

func (m *resilienceMetrics) ObserveBreakerState(operation, state string) {
	for _, s := range breakerStates {
		value := 0.0
		if s == state {
			value = 1
		}
		m.breakerState.WithLabelValues(m.service, operation, s).Set(value)
	}
}
