package store

import (
	"sync"

	"github.com/lupettohf/meshttpd/radio"
)

// DeviceSample is the latest device telemetry reading for one node.
type DeviceSample struct {
	Time    int64               `json:"time"`
	Metrics radio.DeviceMetrics `json:"deviceMetrics"`
}

// EnvironmentSample is the latest environment telemetry reading for one node.
type EnvironmentSample struct {
	Time    int64                    `json:"time"`
	Metrics radio.EnvironmentMetrics `json:"environmentMetrics"`
}

// TelemetryStore holds two independent latest-value-wins caches keyed by node
// number: device metrics and environment metrics. Cardinality is bounded by
// the number of distinct nodes, so there is no eviction.
type TelemetryStore struct {
	deviceMu sync.RWMutex
	device   map[uint32]DeviceSample

	envMu       sync.RWMutex
	environment map[uint32]EnvironmentSample

	stats   *Statistics
	metrics *storeMetrics
}

// NewTelemetryStore creates an empty telemetry store.
func NewTelemetryStore(opts ...Option) (*TelemetryStore, error) {
	metrics, err := buildMetrics(opts)
	if err != nil {
		return nil, err
	}

	return &TelemetryStore{
		device:      make(map[uint32]DeviceSample),
		environment: make(map[uint32]EnvironmentSample),
		stats:       NewStatistics(),
		metrics:     metrics,
	}, nil
}

// SetDevice overwrites the device sample for a node.
func (s *TelemetryStore) SetDevice(nodeID uint32, sample DeviceSample) {
	s.deviceMu.Lock()
	_, existed := s.device[nodeID]
	s.device[nodeID] = sample
	s.deviceMu.Unlock()

	s.recordWrite(existed)
}

// SetEnvironment overwrites the environment sample for a node.
func (s *TelemetryStore) SetEnvironment(nodeID uint32, sample EnvironmentSample) {
	s.envMu.Lock()
	_, existed := s.environment[nodeID]
	s.environment[nodeID] = sample
	s.envMu.Unlock()

	s.recordWrite(existed)
}

// DeviceSnapshot returns a copy of the device cache safe for lock-free reads.
func (s *TelemetryStore) DeviceSnapshot() map[uint32]DeviceSample {
	s.deviceMu.RLock()
	defer s.deviceMu.RUnlock()

	out := make(map[uint32]DeviceSample, len(s.device))
	for k, v := range s.device {
		out[k] = v
	}
	return out
}

// EnvironmentSnapshot returns a copy of the environment cache.
func (s *TelemetryStore) EnvironmentSnapshot() map[uint32]EnvironmentSample {
	s.envMu.RLock()
	defer s.envMu.RUnlock()

	out := make(map[uint32]EnvironmentSample, len(s.environment))
	for k, v := range s.environment {
		out[k] = v
	}
	return out
}

// Len returns the combined entry count across both caches.
func (s *TelemetryStore) Len() int {
	s.deviceMu.RLock()
	d := len(s.device)
	s.deviceMu.RUnlock()

	s.envMu.RLock()
	e := len(s.environment)
	s.envMu.RUnlock()

	return d + e
}

// Stats returns the store's operation statistics.
func (s *TelemetryStore) Stats() *Statistics {
	return s.stats
}

func (s *TelemetryStore) recordWrite(existed bool) {
	if existed {
		s.stats.Update()
		s.metrics.recordUpdate()
	} else {
		s.stats.Insert()
		s.metrics.recordInsert()
	}
	size := s.Len()
	s.stats.UpdateSize(int64(size))
	s.metrics.updateSize(size)
}
