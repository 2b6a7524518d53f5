package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebSocketMetrics holds Prometheus metrics for subscriber connections.
type WebSocketMetrics struct {
	ActiveConnections prometheus.Gauge
	ConnectionsTotal  *prometheus.CounterVec
	MessagesDelivered prometheus.Counter
	MessagesSkipped   *prometheus.CounterVec
	SendDuration      prometheus.Histogram
	PingFailures      prometheus.Counter
	IdleDisconnects   prometheus.Counter
}

// NewWebSocketMetrics creates and registers WebSocket metrics on the given registry.
func NewWebSocketMetrics(reg prometheus.Registerer) *WebSocketMetrics {
	m := &WebSocketMetrics{
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "active_connections",
			Help:      "Number of active WebSocket connections.",
		}),
		ConnectionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "connections_total",
			Help:      "Total number of WebSocket connection attempts, by result.",
		}, []string{"result"}),
		MessagesDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "messages_delivered_total",
			Help:      "Total number of records enqueued to subscribers.",
		}),
		MessagesSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "messages_skipped_total",
			Help:      "Total number of records not delivered to a subscriber, by reason.",
		}, []string{"reason"}),
		SendDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "send_duration_seconds",
			Help:      "Duration of a single WebSocket frame write in seconds.",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		PingFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "ping_failures_total",
			Help:      "Total number of failed keep-alive pings.",
		}),
		IdleDisconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "websocket",
			Name:      "idle_disconnects_total",
			Help:      "Total number of connections closed for inactivity.",
		}),
	}

	reg.MustRegister(m.ActiveConnections, m.ConnectionsTotal, m.MessagesDelivered, m.MessagesSkipped,
		m.SendDuration, m.PingFailures, m.IdleDisconnects)
	return m
}
