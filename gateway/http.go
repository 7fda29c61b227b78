// Package gateway exposes the mesh bridge over HTTP. It serves the
// JSON query API under a configurable prefix and an optional websocket
// stream of live mesh events.
package gateway

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/lupettohf/meshttpd/errors"
	"github.com/lupettohf/meshttpd/mesh"
	"github.com/lupettohf/meshttpd/metric"
)

// DefaultPrefix is the path prefix the API handlers are mounted under.
const DefaultPrefix = "/api/mesh"

// getOrGenerateRequestID extracts the request ID from headers or
// generates a new one so responses can be correlated in logs.
func getOrGenerateRequestID(r *http.Request) string {
	if reqID := r.Header.Get("X-Request-ID"); reqID != "" {
		return reqID
	}

	// 16 hex characters (8 random bytes)
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

// Server serves the mesh query API over HTTP.
type Server struct {
	svc     *mesh.Service
	hub     *EventHub
	logger  *slog.Logger
	metrics *metric.Metrics

	startTime time.Time

	requestsTotal   atomic.Uint64
	requestsSuccess atomic.Uint64
	requestsFailed  atomic.Uint64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetrics enables request counters on the shared registry.
func WithMetrics(m *metric.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithEventHub attaches a websocket hub served at <prefix>/events.
func WithEventHub(hub *EventHub) Option {
	return func(s *Server) {
		s.hub = hub
	}
}

// NewServer creates an HTTP server over the given mesh service.
func NewServer(svc *mesh.Service, opts ...Option) *Server {
	s := &Server{
		svc:       svc,
		logger:    slog.Default(),
		startTime: time.Now(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RegisterHandlers mounts the API on mux under prefix. An empty prefix
// uses DefaultPrefix.
func (s *Server) RegisterHandlers(prefix string, mux *http.ServeMux) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	mux.HandleFunc(prefix, s.instrument("index", s.handleIndex))
	mux.HandleFunc(prefix+"/", s.instrument("index", s.handleIndex))
	mux.HandleFunc(prefix+"/send_message", s.instrument("send_message", s.handleSendMessage))
	mux.HandleFunc(prefix+"/get_device_telemetry", s.instrument("get_device_telemetry", s.handleDeviceTelemetry))
	mux.HandleFunc(prefix+"/get_environment_telemetry", s.instrument("get_environment_telemetry", s.handleEnvironmentTelemetry))
	mux.HandleFunc(prefix+"/get_last_messages", s.instrument("get_last_messages", s.handleLastMessages))
	mux.HandleFunc(prefix+"/delete_message", s.instrument("delete_message", s.handleDeleteMessage))
	mux.HandleFunc(prefix+"/nodes", s.instrument("nodes", s.handleNodes))
	mux.HandleFunc(prefix+"/status", s.instrument("status", s.handleStatus))
	if s.hub != nil {
		mux.HandleFunc(prefix+"/events", s.hub.HandleUpgrade)
	}
}

// RequestCounts reports total, succeeded, and failed request counts.
func (s *Server) RequestCounts() (total, success, failed uint64) {
	return s.requestsTotal.Load(), s.requestsSuccess.Load(), s.requestsFailed.Load()
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(endpoint string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := getOrGenerateRequestID(r)
		w.Header().Set("X-Request-ID", reqID)

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		h(rec, r)

		s.requestsTotal.Add(1)
		if rec.status < 400 {
			s.requestsSuccess.Add(1)
		} else {
			s.requestsFailed.Add(1)
		}
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(endpoint, strconv.Itoa(rec.status))
		}
		s.logger.Debug("request handled",
			"endpoint", endpoint,
			"request_id", reqID,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeMissingParameter mirrors the daemon's long-standing behavior of
// answering 404 when a required query parameter is absent.
func writeMissingParameter(w http.ResponseWriter, name string) {
	writeJSON(w, http.StatusNotFound, map[string]string{
		"error": "Missing parameters: " + name,
	})
}

// writeOperationError maps facade errors onto the API's wire contract.
// Parameter and lookup failures are HTTP-level errors; transport
// failures answer 200 with an error status in the body so polling
// clients keep a stable envelope.
func (s *Server) writeOperationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errors.ErrInvalidNodeID):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid node ID"})
	case errors.Is(err, errors.ErrNotFound):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid message ID"})
	case errors.Is(err, errors.ErrNotConnected):
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "error",
			"message": "Mesh interface not initialized",
		})
	default:
		writeJSON(w, http.StatusOK, map[string]string{
			"status":  "error",
			"message": err.Error(),
		})
	}
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	message := r.FormValue("message")
	if message == "" {
		writeMissingParameter(w, "message")
		return
	}
	target := r.FormValue("node_id")

	if err := s.svc.SendMessage(r.Context(), message, target); err != nil {
		s.logger.Warn("send failed", "error", err)
		s.writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Message sent successfully",
	})
}

func (s *Server) handleDeviceTelemetry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.DeviceTelemetry())
}

func (s *Server) handleEnvironmentTelemetry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.EnvironmentTelemetry())
}

func (s *Server) handleLastMessages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.LastMessages())
}

func (s *Server) handleDeleteMessage(w http.ResponseWriter, r *http.Request) {
	id := r.FormValue("message_id")
	if id == "" {
		writeMissingParameter(w, "message_id")
		return
	}
	if err := s.svc.DeleteMessage(id); err != nil {
		s.writeOperationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Message deleted successfully",
	})
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Nodes())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	state := s.svc.Status()

	var lastConnected int64
	if !state.LastConnectedAt.IsZero() {
		lastConnected = state.LastConnectedAt.Unix()
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"connected":                 state.Connected,
		"nodeid":                    strconv.FormatUint(uint64(state.LocalNodeID), 10),
		"last_connection_time":      lastConnected,
		"total_connection_attempts": state.Attempts,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, indexPage)
}

const indexPage = `<!DOCTYPE html>
<html>
<head>
<title>meshttpd API</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
code { background: #f0f0f0; padding: 2px 5px; border-radius: 3px; }
li { margin: 0.4em 0; }
</style>
</head>
<body>
<h1>meshttpd</h1>
<p>HTTP bridge to a mesh radio network. Available endpoints:</p>
<ul>
<li><code>GET /api/mesh/send_message?message=&lt;text&gt;[&amp;node_id=&lt;id&gt;]</code> send a text message, broadcast when node_id is omitted</li>
<li><code>GET /api/mesh/get_device_telemetry</code> latest device telemetry per node</li>
<li><code>GET /api/mesh/get_environment_telemetry</code> latest environment telemetry per node</li>
<li><code>GET /api/mesh/get_last_messages</code> recent received messages in arrival order</li>
<li><code>GET /api/mesh/delete_message?message_id=&lt;id&gt;</code> remove a stored message</li>
<li><code>GET /api/mesh/nodes</code> known node identifiers</li>
<li><code>GET /api/mesh/status</code> radio connection status</li>
<li><code>WS  /api/mesh/events</code> live event stream</li>
</ul>
</body>
</html>
`
