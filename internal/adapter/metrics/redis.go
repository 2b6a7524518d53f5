package metrics

import "github.com/prometheus/client_golang/prometheus"

// RedisMetrics holds Prometheus metrics for the Redis adapter.
type RedisMetrics struct {
	CircuitState        prometheus.Gauge
	CircuitStateChanges *prometheus.CounterVec
	RelayPublished      *prometheus.CounterVec
	RelayReceived       prometheus.Counter
}

// NewRedisMetrics creates and registers Redis metrics on the given registry.
func NewRedisMetrics(reg prometheus.Registerer) *RedisMetrics {
	m := &RedisMetrics{
		CircuitState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "circuit_breaker_state",
			Help:      "Current Redis circuit breaker state (0=closed, 1=half-open, 2=open).",
		}),
		CircuitStateChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "redis",
			Name:      "circuit_breaker_state_changes_total",
			Help:      "Total number of Redis circuit breaker transitions, by new state.",
		}, []string{"state"}),
		RelayPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "published_total",
			Help:      "Total number of records handed to the relay, by path.",
		}, []string{"path"}),
		RelayReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "relay",
			Name:      "received_total",
			Help:      "Total number of records received from the relay channel.",
		}),
	}

	reg.MustRegister(m.CircuitState, m.CircuitStateChanges, m.RelayPublished, m.RelayReceived)
	return m
}
