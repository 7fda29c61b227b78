package gateway

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lupettohf/meshttpd/dispatch"
)

const (
	// clientBuffer is the per-client event queue depth. Slow clients
	// that fall further behind lose events rather than stall the
	// ingestion path.
	clientBuffer = 16

	writeTimeout = 10 * time.Second
)

// wireEvent is the JSON shape pushed to websocket subscribers.
type wireEvent struct {
	Kind      string `json:"kind"`
	NodeID    uint32 `json:"node_id"`
	Text      string `json:"text,omitempty"`
	MessageID string `json:"message_id,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// EventHub fans mesh events out to websocket subscribers. Publish is
// safe to call from the packet ingestion goroutine and never blocks.
type EventHub struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]chan wireEvent
}

// NewEventHub creates a hub with no subscribers.
func NewEventHub(logger *slog.Logger) *EventHub {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHub{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		clients: make(map[*websocket.Conn]chan wireEvent),
	}
}

// Publish queues an event for every connected subscriber. Events to
// clients with full queues are dropped.
func (h *EventHub) Publish(ev dispatch.Event) {
	out := wireEvent{
		Kind:      string(ev.Kind),
		NodeID:    ev.Packet.From,
		MessageID: ev.MessageID,
		Timestamp: time.Now().Unix(),
	}
	if ev.Kind == dispatch.KindMessage && ev.Packet.Text != nil {
		out.Text = *ev.Packet.Text
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for conn, ch := range h.clients {
		select {
		case ch <- out:
		default:
			h.logger.Debug("event dropped for slow subscriber",
				"remote", conn.RemoteAddr().String())
		}
	}
}

// ClientCount reports the number of connected subscribers.
func (h *EventHub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// HandleUpgrade upgrades the request to a websocket and streams events
// until the client disconnects.
func (h *EventHub) HandleUpgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	ch := make(chan wireEvent, clientBuffer)
	h.mu.Lock()
	h.clients[conn] = ch
	h.mu.Unlock()
	h.logger.Info("event subscriber connected", "remote", conn.RemoteAddr().String())

	done := make(chan struct{})

	// Reader goroutine. Inbound frames are discarded; its only job is
	// noticing the close.
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(ev); err != nil {
				h.remove(conn)
				return
			}
		case <-done:
			h.remove(conn)
			return
		}
	}
}

func (h *EventHub) remove(conn *websocket.Conn) {
	h.mu.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
	}
	h.mu.Unlock()
	_ = conn.Close()
	h.logger.Info("event subscriber disconnected", "remote", conn.RemoteAddr().String())
}

// Close disconnects all subscribers.
func (h *EventHub) Close() {
	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.clients))
	for conn := range h.clients {
		conns = append(conns, conn)
	}
	h.clients = make(map[*websocket.Conn]chan wireEvent)
	h.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}
