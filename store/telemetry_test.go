package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lupettohf/meshttpd/radio"
)

func floatPtr(f float64) *float64 {
	return &f
}

func newTestTelemetryStore(t *testing.T) *TelemetryStore {
	t.Helper()
	s, err := NewTelemetryStore()
	require.NoError(t, err)
	return s
}

func TestDeviceLatestWins(t *testing.T) {
	s := newTestTelemetryStore(t)

	s.SetDevice(42, DeviceSample{
		Time:    100,
		Metrics: radio.DeviceMetrics{BatteryLevel: floatPtr(80), Voltage: floatPtr(3.9)},
	})
	s.SetDevice(42, DeviceSample{
		Time:    200,
		Metrics: radio.DeviceMetrics{BatteryLevel: floatPtr(75)},
	})

	snapshot := s.DeviceSnapshot()
	require.Len(t, snapshot, 1)

	sample := snapshot[42]
	assert.Equal(t, int64(200), sample.Time)
	assert.Equal(t, 75.0, *sample.Metrics.BatteryLevel)
	// Later sample's fields replace the whole entry; voltage is gone
	assert.Nil(t, sample.Metrics.Voltage)
}

func TestEnvironmentLatestWins(t *testing.T) {
	s := newTestTelemetryStore(t)

	s.SetEnvironment(7, EnvironmentSample{
		Time:    100,
		Metrics: radio.EnvironmentMetrics{Temperature: floatPtr(20.0)},
	})
	s.SetEnvironment(7, EnvironmentSample{
		Time:    150,
		Metrics: radio.EnvironmentMetrics{Temperature: floatPtr(21.5), RelativeHumidity: floatPtr(40)},
	})

	snapshot := s.EnvironmentSnapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, 21.5, *snapshot[7].Metrics.Temperature)
	assert.Equal(t, 40.0, *snapshot[7].Metrics.RelativeHumidity)
}

func TestCachesAreIndependent(t *testing.T) {
	s := newTestTelemetryStore(t)

	s.SetDevice(1, DeviceSample{Time: 1})
	s.SetEnvironment(2, EnvironmentSample{Time: 2})

	assert.Len(t, s.DeviceSnapshot(), 1)
	assert.Len(t, s.EnvironmentSnapshot(), 1)
	assert.NotContains(t, s.DeviceSnapshot(), uint32(2))
	assert.NotContains(t, s.EnvironmentSnapshot(), uint32(1))
	assert.Equal(t, 2, s.Len())
}

func TestTelemetrySnapshotIsACopy(t *testing.T) {
	s := newTestTelemetryStore(t)
	s.SetDevice(1, DeviceSample{Time: 1})

	snapshot := s.DeviceSnapshot()
	snapshot[99] = DeviceSample{Time: 99}

	assert.Len(t, s.DeviceSnapshot(), 1)
}

func TestTelemetryStats(t *testing.T) {
	s := newTestTelemetryStore(t)

	s.SetDevice(1, DeviceSample{Time: 1})
	s.SetDevice(1, DeviceSample{Time: 2})
	s.SetEnvironment(1, EnvironmentSample{Time: 1})

	assert.Equal(t, int64(2), s.Stats().Inserts())
	assert.Equal(t, int64(1), s.Stats().Updates())
	assert.Equal(t, int64(2), s.Stats().Size())
}

func TestTelemetryConcurrentAccess(t *testing.T) {
	s := newTestTelemetryStore(t)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				s.SetDevice(uint32(w), DeviceSample{Time: int64(i)})
				s.SetEnvironment(uint32(w), EnvironmentSample{Time: int64(i)})
				_ = s.DeviceSnapshot()
				_ = s.EnvironmentSnapshot()
			}
		}(w)
	}
	wg.Wait()

	assert.Len(t, s.DeviceSnapshot(), 8)
	assert.Len(t, s.EnvironmentSnapshot(), 8)
}
