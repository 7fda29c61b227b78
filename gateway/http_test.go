package gateway

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lupettohf/meshttpd/connection"
	"github.com/lupettohf/meshttpd/dispatch"
	"github.com/lupettohf/meshttpd/mesh"
	"github.com/lupettohf/meshttpd/pkg/backoff"
	"github.com/lupettohf/meshttpd/radio"
	"github.com/lupettohf/meshttpd/radio/radiotest"
	"github.com/lupettohf/meshttpd/store"
)

type env struct {
	server *httptest.Server
	api    *Server
	hub    *EventHub
	dialer *radiotest.Dialer
}

// newEnv wires the full pipeline behind a test HTTP server. When
// connected is true it waits for the link to come up first.
func newEnv(t *testing.T, connected bool) *env {
	t.Helper()

	telemetry, err := store.NewTelemetryStore()
	require.NoError(t, err)
	messages, err := store.NewMessageStore(100)
	require.NoError(t, err)
	nodes, err := store.NewNodeRegistry()
	require.NoError(t, err)

	hub := NewEventHub(nil)
	dialer := radiotest.NewDialer(0xbeef, 0)
	dispatcher := dispatch.New(telemetry, messages, nodes,
		dispatch.WithObserver(hub.Publish))
	manager := connection.NewManager("gateway:4403", dialer, dispatcher,
		connection.WithBackoff(backoff.Fixed(time.Millisecond)))
	service := mesh.NewService(manager, telemetry, messages, nodes)

	if connected {
		ctx, cancel := context.WithCancel(context.Background())
		t.Cleanup(cancel)
		go func() { _ = manager.Run(ctx) }()
		require.Eventually(t, manager.IsConnected, 2*time.Second, time.Millisecond)
	}

	api := NewServer(service, WithEventHub(hub))
	mux := http.NewServeMux()
	api.RegisterHandlers("", mux)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	t.Cleanup(hub.Close)

	return &env{server: srv, api: api, hub: hub, dialer: dialer}
}

func (e *env) get(t *testing.T, path string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(e.server.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded), "body: %s", body)
	return resp.StatusCode, decoded
}

func TestSendMessageBroadcast(t *testing.T) {
	e := newEnv(t, true)

	code, body := e.get(t, "/api/mesh/send_message?message=hello")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", body["status"])

	sent := e.dialer.Current().Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "hello", sent[0].Text)
	assert.Equal(t, "", sent[0].Target)
}

func TestSendMessageDirected(t *testing.T) {
	e := newEnv(t, true)

	code, body := e.get(t, "/api/mesh/send_message?message=hi&node_id=305419896")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", body["status"])

	sent := e.dialer.Current().Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "305419896", sent[0].Target)
}

func TestSendMessageMissingParameter(t *testing.T) {
	e := newEnv(t, true)

	code, body := e.get(t, "/api/mesh/send_message")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Missing parameters: message", body["error"])
}

func TestSendMessageInvalidNodeID(t *testing.T) {
	e := newEnv(t, true)
	e.dialer.Current().SetValidTargets("")

	code, body := e.get(t, "/api/mesh/send_message?message=hi&node_id=bogus")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid node ID", body["error"])
}

func TestSendMessageNotConnected(t *testing.T) {
	e := newEnv(t, false)

	code, body := e.get(t, "/api/mesh/send_message?message=hi")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "error", body["status"])
	assert.Contains(t, body["message"], "not initialized")
}

func TestLastMessagesLifecycle(t *testing.T) {
	e := newEnv(t, true)

	link := e.dialer.Current()
	link.Inject(radio.Packet{From: 7, Text: radiotest.Text("hello")})
	link.Inject(radio.Packet{From: 8, Text: radiotest.Text("world")})

	var listing map[string]any
	require.Eventually(t, func() bool {
		_, listing = e.get(t, "/api/mesh/get_last_messages")
		return len(listing) == 2
	}, 2*time.Second, 5*time.Millisecond)

	var helloID string
	for id, raw := range listing {
		entry := raw.(map[string]any)
		if entry["message"] == "hello" {
			helloID = id
			assert.Equal(t, float64(7), entry["node_id"])
		}
	}
	require.NotEmpty(t, helloID)

	code, body := e.get(t, "/api/mesh/delete_message?message_id="+url.QueryEscape(helloID))
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "success", body["status"])

	_, listing = e.get(t, "/api/mesh/get_last_messages")
	assert.Len(t, listing, 1)
	_, remains := listing[helloID]
	assert.False(t, remains)
}

func TestDeleteMessageMissingParameter(t *testing.T) {
	e := newEnv(t, true)

	code, body := e.get(t, "/api/mesh/delete_message")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Missing parameters: message_id", body["error"])
}

func TestDeleteMessageUnknownID(t *testing.T) {
	e := newEnv(t, true)

	code, body := e.get(t, "/api/mesh/delete_message?message_id=ffffffffff")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid message ID", body["error"])
}

func TestTelemetryEndpoints(t *testing.T) {
	e := newEnv(t, true)

	e.dialer.Current().Inject(radio.Packet{
		From: 42,
		Telemetry: &radio.Telemetry{
			Time: 1700000000,
			Device: &radio.DeviceMetrics{
				BatteryLevel: radiotest.Float(88),
			},
			Environment: &radio.EnvironmentMetrics{
				Temperature: radiotest.Float(21.5),
			},
		},
	})

	require.Eventually(t, func() bool {
		_, body := e.get(t, "/api/mesh/get_device_telemetry")
		return len(body) == 1
	}, 2*time.Second, 5*time.Millisecond)

	_, device := e.get(t, "/api/mesh/get_device_telemetry")
	sample := device["42"].(map[string]any)
	metrics := sample["deviceMetrics"].(map[string]any)
	assert.Equal(t, float64(88), metrics["batteryLevel"])

	_, envBody := e.get(t, "/api/mesh/get_environment_telemetry")
	sample = envBody["42"].(map[string]any)
	metrics = sample["environmentMetrics"].(map[string]any)
	assert.Equal(t, 21.5, metrics["temperature"])
}

func TestNodesEndpoint(t *testing.T) {
	e := newEnv(t, true)

	e.dialer.Current().Inject(radio.Packet{From: 9, FromLongID: "!0000beef"})

	require.Eventually(t, func() bool {
		_, body := e.get(t, "/api/mesh/nodes")
		return len(body) == 1
	}, 2*time.Second, 5*time.Millisecond)

	_, nodes := e.get(t, "/api/mesh/nodes")
	entry := nodes["9"].(map[string]any)
	assert.Equal(t, "!0000beef", entry["long_id"])
}

func TestStatusEndpoint(t *testing.T) {
	e := newEnv(t, true)

	code, body := e.get(t, "/api/mesh/status")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["connected"])
	assert.Equal(t, "48879", body["nodeid"])
	assert.Equal(t, float64(1), body["total_connection_attempts"])
	assert.Greater(t, body["last_connection_time"], float64(0))
}

func TestStatusEndpointDisconnected(t *testing.T) {
	e := newEnv(t, false)

	_, body := e.get(t, "/api/mesh/status")
	assert.Equal(t, false, body["connected"])
	assert.Equal(t, float64(0), body["total_connection_attempts"])
}

func TestRequestIDPropagation(t *testing.T) {
	e := newEnv(t, true)

	req, err := http.NewRequest(http.MethodGet, e.server.URL+"/api/mesh/status", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "trace-123")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "trace-123", resp.Header.Get("X-Request-ID"))

	resp, err = http.Get(e.server.URL + "/api/mesh/status")
	require.NoError(t, err)
	resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestRequestCounts(t *testing.T) {
	e := newEnv(t, true)

	e.get(t, "/api/mesh/status")
	e.get(t, "/api/mesh/delete_message") // 404

	total, success, failed := e.api.RequestCounts()
	assert.Equal(t, uint64(2), total)
	assert.Equal(t, uint64(1), success)
	assert.Equal(t, uint64(1), failed)
}

func TestIndexPage(t *testing.T) {
	e := newEnv(t, true)

	resp, err := http.Get(e.server.URL + "/api/mesh")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "send_message")
}

func TestEventStream(t *testing.T) {
	e := newEnv(t, true)

	wsURL := "ws" + strings.TrimPrefix(e.server.URL, "http") + "/api/mesh/events"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return e.hub.ClientCount() == 1
	}, 2*time.Second, time.Millisecond)

	e.dialer.Current().Inject(radio.Packet{
		From:       5,
		FromLongID: "!00000005",
		Text:       radiotest.Text("ping"),
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	// The packet yields a node event and a message event.
	kinds := map[string]wireEvent{}
	for i := 0; i < 2; i++ {
		var ev wireEvent
		require.NoError(t, conn.ReadJSON(&ev))
		kinds[ev.Kind] = ev
	}

	msg, ok := kinds["message"]
	require.True(t, ok)
	assert.Equal(t, uint32(5), msg.NodeID)
	assert.Equal(t, "ping", msg.Text)
	assert.NotEmpty(t, msg.MessageID)

	_, ok = kinds["node"]
	assert.True(t, ok)
}
