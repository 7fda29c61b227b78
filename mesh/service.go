// Package mesh provides the query facade the API layer calls through.
//
// The Service wraps the stores and the connection manager behind thread-safe
// operations. It adds parameter validation and error mapping but no locking
// of its own: every operation delegates to exactly one store snapshot or one
// connection call.
package mesh

import (
	"context"
	"log/slog"

	"github.com/lupettohf/meshttpd/connection"
	"github.com/lupettohf/meshttpd/errors"
	"github.com/lupettohf/meshttpd/metric"
	"github.com/lupettohf/meshttpd/store"
)

// Service is the synchronization boundary between the ingestion path and the
// external API layer.
type Service struct {
	conn      *connection.Manager
	telemetry *store.TelemetryStore
	messages  *store.MessageStore
	nodes     *store.NodeRegistry
	logger    *slog.Logger
	metrics   *metric.Metrics
}

// Option configures the Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics enables send-result counters.
func WithMetrics(m *metric.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// NewService creates the facade over the given collaborators.
func NewService(
	conn *connection.Manager,
	telemetry *store.TelemetryStore,
	messages *store.MessageStore,
	nodes *store.NodeRegistry,
	opts ...Option,
) *Service {
	s := &Service{
		conn:      conn,
		telemetry: telemetry,
		messages:  messages,
		nodes:     nodes,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SendMessage transmits text over the mesh. An empty target broadcasts.
//
// Fails with ErrMissingParameter when text is empty, ErrNotConnected when no
// link is up, and ErrInvalidNodeID when the transport rejects the target.
// Any other transport failure is surfaced as a transient error; none of
// these affect the connection loop.
func (s *Service) SendMessage(ctx context.Context, text, target string) error {
	if text == "" {
		return errors.WrapInvalid(errors.ErrMissingParameter, "Service", "SendMessage", "validate message")
	}

	if !s.conn.IsConnected() {
		s.recordSend("not_connected")
		return errors.ErrNotConnected
	}

	if err := s.conn.Send(ctx, text, target); err != nil {
		if errors.Is(err, errors.ErrInvalidNodeID) {
			s.recordSend("invalid_node")
			return err
		}
		if errors.Is(err, errors.ErrNotConnected) || errors.Is(err, errors.ErrLinkClosed) {
			s.recordSend("not_connected")
			return errors.ErrNotConnected
		}
		s.recordSend("failed")
		s.logger.Warn("send failed", "target", target, "error", err)
		return errors.WrapTransient(err, "Service", "SendMessage", "deliver text")
	}

	s.recordSend("ok")
	return nil
}

// DeviceTelemetry returns the latest device sample per node.
func (s *Service) DeviceTelemetry() map[uint32]store.DeviceSample {
	return s.telemetry.DeviceSnapshot()
}

// EnvironmentTelemetry returns the latest environment sample per node.
func (s *Service) EnvironmentTelemetry() map[uint32]store.EnvironmentSample {
	return s.telemetry.EnvironmentSnapshot()
}

// LastMessages returns the cached messages in arrival order.
func (s *Service) LastMessages() store.MessageList {
	return s.messages.Snapshot()
}

// DeleteMessage removes one cached message by id.
//
// Fails with ErrMissingParameter for an empty id and ErrNotFound for an
// unknown one.
func (s *Service) DeleteMessage(id string) error {
	if id == "" {
		return errors.WrapInvalid(errors.ErrMissingParameter, "Service", "DeleteMessage", "validate message id")
	}
	return s.messages.Delete(id)
}

// Nodes returns every node ever observed.
func (s *Service) Nodes() map[uint32]store.NodeInfo {
	return s.nodes.Snapshot()
}

// Status returns a snapshot of the connection state.
func (s *Service) Status() connection.State {
	return s.conn.Status()
}

func (s *Service) recordSend(status string) {
	if s.metrics != nil {
		s.metrics.RecordSend(status)
	}
}
