// Package radio defines the transport boundary to the mesh gateway device.
//
// The boundary is two small interfaces: a Dialer that establishes links and a
// Link that exposes the gateway's node number, an outbound Send, and a push
// stream of decoded inbound Packets. Everything above this package treats the
// transport as opaque; the wire protocol lives entirely here.
//
// TCPDialer implements the boundary over TCP with newline-delimited JSON
// frames. The radiotest subpackage provides a scripted in-memory
// implementation for tests.
package radio
