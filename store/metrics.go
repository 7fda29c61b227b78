package store

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lupettohf/meshttpd/metric"
)

// storeMetrics holds Prometheus metrics for store operations.
type storeMetrics struct {
	inserts   prometheus.Counter
	updates   prometheus.Counter
	deletes   prometheus.Counter
	evictions prometheus.Counter
	size      prometheus.Gauge
}

// newStoreMetrics creates and registers store metrics with the provided registry.
func newStoreMetrics(registry *metric.Registry, prefix string) (*storeMetrics, error) {
	m := &storeMetrics{
		inserts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "meshttpd",
			Subsystem:   "store",
			Name:        "inserts_total",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Total number of store inserts",
		}),
		updates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "meshttpd",
			Subsystem:   "store",
			Name:        "updates_total",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Total number of store overwrites",
		}),
		deletes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "meshttpd",
			Subsystem:   "store",
			Name:        "deletes_total",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Total number of store deletes",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace:   "meshttpd",
			Subsystem:   "store",
			Name:        "evictions_total",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Total number of capacity evictions",
		}),
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   "meshttpd",
			Subsystem:   "store",
			Name:        "size",
			ConstLabels: prometheus.Labels{"component": prefix},
			Help:        "Current number of entries in the store",
		}),
	}

	if err := registry.RegisterCounter(prefix, "inserts", m.inserts); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "updates", m.updates); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "deletes", m.deletes); err != nil {
		return nil, err
	}
	if err := registry.RegisterCounter(prefix, "evictions", m.evictions); err != nil {
		return nil, err
	}
	if err := registry.RegisterGauge(prefix, "size", m.size); err != nil {
		return nil, err
	}

	return m, nil
}

func (m *storeMetrics) recordInsert() {
	if m != nil {
		m.inserts.Inc()
	}
}

func (m *storeMetrics) recordUpdate() {
	if m != nil {
		m.updates.Inc()
	}
}

func (m *storeMetrics) recordDelete() {
	if m != nil {
		m.deletes.Inc()
	}
}

func (m *storeMetrics) recordEviction() {
	if m != nil {
		m.evictions.Inc()
	}
}

func (m *storeMetrics) updateSize(size int) {
	if m != nil {
		m.size.Set(float64(size))
	}
}
