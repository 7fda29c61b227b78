// Package health provides health status aggregation for the daemon.
package health

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/lupettohf/meshttpd/connection"
	"github.com/lupettohf/meshttpd/store"
)

// Health state strings
const (
	StateHealthy  = "healthy"
	StateDegraded = "degraded"
)

// Status represents the health state of a component or the system.
type Status struct {
	Component   string         `json:"component"`
	Healthy     bool           `json:"healthy"`
	Status      string         `json:"status"` // "healthy" or "degraded"
	Message     string         `json:"message,omitempty"`
	Sizes       map[string]int `json:"sizes,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
	SubStatuses []Status       `json:"sub_statuses,omitempty"`
}

// IsHealthy returns true if the status is healthy
func (s Status) IsHealthy() bool {
	return s.Status == StateHealthy
}

// Checker aggregates health across the connection and the stores.
//
// A daemon with no radio link is degraded, not unhealthy: the retry loop
// never gives up and queries keep serving cached state, so the process is
// doing its job.
type Checker struct {
	conn      *connection.Manager
	messages  *store.MessageStore
	telemetry *store.TelemetryStore
	nodes     *store.NodeRegistry
}

// NewChecker creates a health checker over the daemon's components.
func NewChecker(conn *connection.Manager, telemetry *store.TelemetryStore, messages *store.MessageStore, nodes *store.NodeRegistry) *Checker {
	return &Checker{
		conn:      conn,
		messages:  messages,
		telemetry: telemetry,
		nodes:     nodes,
	}
}

// Check returns the current aggregate status.
func (c *Checker) Check() Status {
	now := time.Now()

	connStatus := Status{
		Component: "connection",
		Timestamp: now,
	}
	if c.conn.IsConnected() {
		connStatus.Healthy = true
		connStatus.Status = StateHealthy
	} else {
		connStatus.Status = StateDegraded
		connStatus.Message = "radio link down, retrying"
	}

	storeStatus := Status{
		Component: "stores",
		Healthy:   true,
		Status:    StateHealthy,
		Sizes: map[string]int{
			"messages":  c.messages.Len(),
			"telemetry": c.telemetry.Len(),
			"nodes":     c.nodes.Len(),
		},
		Timestamp: now,
	}

	overall := Status{
		Component:   "meshttpd",
		Healthy:     connStatus.Healthy,
		Status:      connStatus.Status,
		Timestamp:   now,
		SubStatuses: []Status{connStatus, storeStatus},
	}
	return overall
}

// Handler serves the aggregate status as JSON. Degraded still answers 200;
// the daemon is alive and serving cached state.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		status := c.Check()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(status)
	}
}
