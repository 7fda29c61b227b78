// Package meshttpd is an HTTP bridge to a mesh radio network.
//
// The daemon keeps a persistent TCP connection to a mesh gateway
// device, reconnecting forever with a fixed pause when the link drops.
// Every packet received from the mesh is classified and cached in
// memory: latest device and environment telemetry per node, a bounded
// FIFO of received text messages, and a registry of node identifiers.
// The caches are served over a JSON API, and a websocket stream pushes
// events to subscribers as they arrive.
//
// # Architecture
//
//	┌───────────┐   TCP    ┌────────────┐        ┌──────────┐
//	│   mesh    ├─────────►│ connection │───────►│ dispatch │
//	│  gateway  │  frames  │  .Manager  │ packets│          │
//	└───────────┘          └────────────┘        └────┬─────┘
//	                                                  │ classified
//	                                    ┌─────────────┼─────────────┐
//	                                    ▼             ▼             ▼
//	                               ┌─────────┐  ┌──────────┐  ┌─────────┐
//	                               │telemetry│  │ messages │  │  nodes  │
//	                               │  store  │  │  (FIFO)  │  │registry │
//	                               └────┬────┘  └────┬─────┘  └────┬────┘
//	                                    └─────────────┼─────────────┘
//	                                                  ▼
//	                                    ┌──────────────────────────┐
//	                                    │  gateway (HTTP + WS API) │
//	                                    └──────────────────────────┘
//
// # Packages
//
//   - radio: gateway transport, wire framing, packet model
//   - connection: persistent connection loop with reconnect
//   - dispatch: packet classification into the stores
//   - store: bounded in-memory caches
//   - mesh: query and send facade over the pipeline
//   - gateway: HTTP API and websocket event stream
//   - health: liveness reporting
//   - metric: Prometheus metrics
//   - errors: structured error handling
//   - config: YAML configuration
//
// # Binary
//
// Build and run the daemon:
//
//	go build -o bin/meshttpd ./cmd/meshttpd
//	./bin/meshttpd --config configs/meshttpd.yaml
//
// The API is served under /api/mesh, health under /healthz, and
// Prometheus metrics under /metrics.
package meshttpd
