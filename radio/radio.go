package radio

import (
	"context"
)

// DeviceMetrics holds the device-health readings a node reports about itself.
// All fields are optional; a nil pointer means the reading was absent.
type DeviceMetrics struct {
	BatteryLevel       *float64 `json:"batteryLevel,omitempty"`
	Voltage            *float64 `json:"voltage,omitempty"`
	ChannelUtilization *float64 `json:"channelUtilization,omitempty"`
	AirUtilTx          *float64 `json:"airUtilTx,omitempty"`
}

// EnvironmentMetrics holds sensor readings attached to a node.
type EnvironmentMetrics struct {
	Temperature        *float64 `json:"temperature,omitempty"`
	RelativeHumidity   *float64 `json:"relativeHumidity,omitempty"`
	BarometricPressure *float64 `json:"barometricPressure,omitempty"`
}

// Telemetry is the telemetry section of a packet. A packet may carry device
// metrics, environment metrics, both, or neither.
type Telemetry struct {
	Time        int64               `json:"time"`
	Device      *DeviceMetrics      `json:"deviceMetrics,omitempty"`
	Environment *EnvironmentMetrics `json:"environmentMetrics,omitempty"`
}

// Packet is one decoded unit of data received from the radio transport.
// It is decoded once at the link boundary; downstream consumers inspect the
// optional sections and never touch the wire format.
type Packet struct {
	From       uint32     `json:"from"`
	FromLongID string     `json:"fromId,omitempty"`
	Text       *string    `json:"text,omitempty"`
	Telemetry  *Telemetry `json:"telemetry,omitempty"`
}

// HasText reports whether the packet carries a text payload.
func (p Packet) HasText() bool {
	return p.Text != nil
}

// HasDeviceTelemetry reports whether the packet carries device metrics.
func (p Packet) HasDeviceTelemetry() bool {
	return p.Telemetry != nil && p.Telemetry.Device != nil
}

// HasEnvironmentTelemetry reports whether the packet carries environment metrics.
func (p Packet) HasEnvironmentTelemetry() bool {
	return p.Telemetry != nil && p.Telemetry.Environment != nil
}

// Link is one live transport connection to the radio gateway device.
//
// The Events channel is closed when the link is lost or closed; after that the
// link is dead and a new one must be dialed. Send returns ErrInvalidNodeID for
// an unresolvable target and a transport error otherwise.
type Link interface {
	// LocalNodeID returns the gateway's own node number, known once connected.
	LocalNodeID() uint32

	// Send transmits a text message. An empty target broadcasts.
	Send(ctx context.Context, text, target string) error

	// Events returns the stream of decoded inbound packets.
	Events() <-chan Packet

	// Close tears the link down. Safe to call more than once.
	Close() error
}

// Dialer establishes links to a radio gateway device.
type Dialer interface {
	Dial(ctx context.Context, address string) (Link, error)
}
