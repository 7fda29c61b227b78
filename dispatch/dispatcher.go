// Package dispatch classifies inbound radio packets and routes them to the
// derived-state stores.
package dispatch

import (
	"log/slog"

	"github.com/lupettohf/meshttpd/metric"
	"github.com/lupettohf/meshttpd/radio"
	"github.com/lupettohf/meshttpd/store"
)

// Kind labels one classification a packet matched.
type Kind string

// Classification kinds. A packet may match several.
const (
	KindDeviceTelemetry      Kind = "device_telemetry"
	KindEnvironmentTelemetry Kind = "environment_telemetry"
	KindMessage              Kind = "message"
	KindNode                 Kind = "node"
)

// Event is one classification outcome, published to the optional observer
// (the websocket event stream).
type Event struct {
	Kind      Kind         `json:"kind"`
	Packet    radio.Packet `json:"packet"`
	MessageID string       `json:"message_id,omitempty"`
}

// Observer receives every classification event. It must not block; slow
// consumers are the observer's problem, not the ingestion path's.
type Observer func(Event)

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithMetrics enables per-kind packet counters.
func WithMetrics(m *metric.Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

// WithObserver registers a classification observer.
func WithObserver(fn Observer) Option {
	return func(d *Dispatcher) {
		d.observer = fn
	}
}

// Dispatcher routes classified packets into the stores. Classification is
// pure and does no blocking I/O; every store mutation is a single short
// critical section inside the store itself.
type Dispatcher struct {
	telemetry *store.TelemetryStore
	messages  *store.MessageStore
	nodes     *store.NodeRegistry
	logger    *slog.Logger
	metrics   *metric.Metrics
	observer  Observer
}

// New creates a dispatcher over the given stores.
func New(telemetry *store.TelemetryStore, messages *store.MessageStore, nodes *store.NodeRegistry, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		telemetry: telemetry,
		messages:  messages,
		nodes:     nodes,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// HandlePacket classifies one packet and applies each matching rule
// independently. Packets matching no rule are expected noise and are
// skipped without logging an error.
func (d *Dispatcher) HandlePacket(p radio.Packet) {
	matched := false

	if p.HasDeviceTelemetry() {
		d.telemetry.SetDevice(p.From, store.DeviceSample{
			Time:    p.Telemetry.Time,
			Metrics: *p.Telemetry.Device,
		})
		d.record(Event{Kind: KindDeviceTelemetry, Packet: p})
		matched = true
	}

	if p.HasEnvironmentTelemetry() {
		d.telemetry.SetEnvironment(p.From, store.EnvironmentSample{
			Time:    p.Telemetry.Time,
			Metrics: *p.Telemetry.Environment,
		})
		d.record(Event{Kind: KindEnvironmentTelemetry, Packet: p})
		matched = true
	}

	if p.HasText() {
		id, err := d.messages.Insert(p.From, *p.Text)
		if err != nil {
			d.logger.Warn("failed to cache message", "from", p.From, "error", err)
		} else {
			d.record(Event{Kind: KindMessage, Packet: p, MessageID: id})
		}
		matched = true
	}

	if p.FromLongID != "" {
		if d.nodes.Register(p.From, p.FromLongID) {
			d.record(Event{Kind: KindNode, Packet: p})
		}
		matched = true
	}

	if !matched {
		if d.metrics != nil {
			d.metrics.RecordPacket("ignored")
		}
		d.logger.Debug("ignored packet with no recognized payload", "from", p.From)
	}
}

func (d *Dispatcher) record(ev Event) {
	if d.metrics != nil {
		d.metrics.RecordPacket(string(ev.Kind))
	}
	if d.observer != nil {
		d.observer(ev)
	}
}
