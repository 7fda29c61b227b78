package connection

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lupettohf/meshttpd/errors"
	"github.com/lupettohf/meshttpd/metric"
	"github.com/lupettohf/meshttpd/pkg/backoff"
	"github.com/lupettohf/meshttpd/radio"
)

// Status represents the state of the radio connection
type Status int

// Possible connection statuses
const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

// String returns the string representation of Status
func (s Status) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "unknown"
	}
}

// State is a point-in-time snapshot of the connection, safe to read from any
// goroutine. Attempts counts successful connections, not tries: the loop
// retries forever, so failed dials are unbounded and uninteresting, while
// the success count tells an operator how often the link has flapped.
type State struct {
	Connected       bool      `json:"connected"`
	LocalNodeID     uint32    `json:"local_node_id"`
	Attempts        int64     `json:"connection_attempts"`
	LastConnectedAt time.Time `json:"last_connected_at"`
}

// PacketHandler consumes the inbound packet stream while a link is up.
type PacketHandler interface {
	HandlePacket(radio.Packet)
}

// Option is a functional option for configuring the Manager
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithMetrics enables connection metrics.
func WithMetrics(metrics *metric.Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithBackoff sets the wait policy between connection attempts.
func WithBackoff(policy backoff.Policy) Option {
	return func(m *Manager) {
		m.policy = policy
	}
}

// Manager owns the lifecycle of the radio link: it dials, forwards the event
// stream to the packet handler, and redials forever on any failure. It is the
// sole owner of the link handle and the sole writer of the connection state.
type Manager struct {
	address string
	dialer  radio.Dialer
	handler PacketHandler
	logger  *slog.Logger
	metrics *metric.Metrics
	policy  backoff.Policy

	status        atomic.Value // Status
	attempts      atomic.Int64
	localID       atomic.Uint32
	lastConnected atomic.Value // time.Time

	mu   sync.RWMutex
	link radio.Link

	started atomic.Bool
}

// NewManager creates a manager for one gateway address.
func NewManager(address string, dialer radio.Dialer, handler PacketHandler, opts ...Option) *Manager {
	m := &Manager{
		address: address,
		dialer:  dialer,
		handler: handler,
		logger:  slog.Default(),
		policy:  backoff.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.status.Store(StatusDisconnected)
	m.lastConnected.Store(time.Time{})

	return m
}

// CurrentStatus returns the current connection status
func (m *Manager) CurrentStatus() Status {
	val := m.status.Load()
	if val == nil {
		return StatusDisconnected
	}
	return val.(Status)
}

// Status returns a non-blocking snapshot of the connection state.
func (m *Manager) Status() State {
	return State{
		Connected:       m.CurrentStatus() == StatusConnected,
		LocalNodeID:     m.localID.Load(),
		Attempts:        m.attempts.Load(),
		LastConnectedAt: m.lastConnected.Load().(time.Time),
	}
}

// IsConnected reports whether a live link is up.
func (m *Manager) IsConnected() bool {
	return m.CurrentStatus() == StatusConnected
}

// Send delivers a text message over the current link. Fails with
// ErrNotConnected when no link is up; transport errors pass through
// unchanged so callers can distinguish an invalid target from a send failure.
func (m *Manager) Send(ctx context.Context, text, target string) error {
	m.mu.RLock()
	link := m.link
	m.mu.RUnlock()

	if link == nil {
		return errors.ErrNotConnected
	}
	return link.Send(ctx, text, target)
}

// Run drives the connect/forward/reconnect loop until ctx is cancelled.
// It never gives up on connection failures; the only way out is shutdown,
// at which point the live link (if any) is closed. Run must be called at
// most once.
func (m *Manager) Run(ctx context.Context) error {
	if !m.started.CompareAndSwap(false, true) {
		return errors.ErrAlreadyStarted
	}

	consecutiveFailures := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		m.setStatus(StatusConnecting)
		link, err := m.dialer.Dial(ctx, m.address)
		if err != nil {
			if ctx.Err() != nil {
				m.setStatus(StatusDisconnected)
				return ctx.Err()
			}

			consecutiveFailures++
			m.setStatus(StatusDisconnected)
			m.logger.Warn("could not connect to radio gateway, will retry",
				"address", m.address,
				"error", err)

			if werr := backoff.Wait(ctx, m.policy.Delay(consecutiveFailures)); werr != nil {
				return werr
			}
			continue
		}
		consecutiveFailures = 0

		session := uuid.NewString()[:8]
		m.attach(link)
		m.logger.Info("connected to radio gateway",
			"address", m.address,
			"session", session,
			"local_node", link.LocalNodeID(),
			"connections", m.attempts.Load())

		err = m.forward(ctx, link)
		m.detach(link)

		if err != nil {
			// Shutdown requested while forwarding
			return err
		}

		m.logger.Warn("radio link lost, reconnecting",
			"address", m.address,
			"session", session)

		if werr := backoff.Wait(ctx, m.policy.Delay(1)); werr != nil {
			return werr
		}
	}
}

// forward pumps the link's event stream into the handler. Returns nil when
// the link dies (reconnect) and the context error on shutdown.
func (m *Manager) forward(ctx context.Context, link radio.Link) error {
	events := link.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p, ok := <-events:
			if !ok {
				return nil
			}
			m.handler.HandlePacket(p)
		}
	}
}

// attach records a freshly established link. The manager is the single
// writer of all connection state.
func (m *Manager) attach(link radio.Link) {
	m.mu.Lock()
	m.link = link
	m.mu.Unlock()

	m.attempts.Add(1)
	m.lastConnected.Store(time.Now())
	m.localID.Store(link.LocalNodeID())
	m.setStatus(StatusConnected)

	if m.metrics != nil {
		m.metrics.RecordConnectionSuccess()
	}
}

// detach releases a dead or closing link.
func (m *Manager) detach(link radio.Link) {
	m.mu.Lock()
	m.link = nil
	m.mu.Unlock()

	_ = link.Close()
	m.setStatus(StatusDisconnected)
}

func (m *Manager) setStatus(status Status) {
	m.status.Store(status)
	if m.metrics != nil {
		m.metrics.RecordConnectionState(int(status))
	}
}
