package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains all daemon-level metrics (not store-specific)
type Metrics struct {
	// Connection metrics
	ConnectionState     prometheus.Gauge
	ConnectionSuccesses prometheus.Counter

	// Ingestion metrics
	PacketsReceived *prometheus.CounterVec
	FramesDropped   prometheus.Counter
	SendsTotal      *prometheus.CounterVec

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
}

// NewMetrics creates a new Metrics instance with all daemon metrics
func NewMetrics() *Metrics {
	return &Metrics{
		ConnectionState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "meshttpd",
				Subsystem: "connection",
				Name:      "state",
				Help:      "Connection state (0=disconnected, 1=connecting, 2=connected)",
			},
		),

		ConnectionSuccesses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "meshttpd",
				Subsystem: "connection",
				Name:      "successes_total",
				Help:      "Total number of successful connections to the radio gateway",
			},
		),

		PacketsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "meshttpd",
				Subsystem: "packets",
				Name:      "received_total",
				Help:      "Total number of packets received, by classified kind",
			},
			[]string{"kind"},
		),

		FramesDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "meshttpd",
				Subsystem: "packets",
				Name:      "dropped_total",
				Help:      "Total number of malformed or unrecognized frames dropped",
			},
		),

		SendsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "meshttpd",
				Subsystem: "messages",
				Name:      "sends_total",
				Help:      "Total number of outbound send attempts, by result",
			},
			[]string{"status"},
		),

		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "meshttpd",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests, by endpoint and status class",
			},
			[]string{"endpoint", "status"},
		),
	}
}

// RecordConnectionState sets the connection state gauge
func (m *Metrics) RecordConnectionState(state int) {
	m.ConnectionState.Set(float64(state))
}

// RecordConnectionSuccess increments the successful-connections counter
func (m *Metrics) RecordConnectionSuccess() {
	m.ConnectionSuccesses.Inc()
}

// RecordPacket increments the received-packets counter for a kind
func (m *Metrics) RecordPacket(kind string) {
	m.PacketsReceived.WithLabelValues(kind).Inc()
}

// RecordFrameDropped increments the dropped-frames counter
func (m *Metrics) RecordFrameDropped() {
	m.FramesDropped.Inc()
}

// RecordSend increments the send counter for a result status
func (m *Metrics) RecordSend(status string) {
	m.SendsTotal.WithLabelValues(status).Inc()
}

// RecordHTTPRequest increments the HTTP request counter
func (m *Metrics) RecordHTTPRequest(endpoint, status string) {
	m.HTTPRequests.WithLabelValues(endpoint, status).Inc()
}
