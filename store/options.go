package store

import (
	"github.com/lupettohf/meshttpd/metric"
)

// storeOptions holds optional configuration shared by all stores.
type storeOptions struct {
	metricsReg    *metric.Registry
	metricsPrefix string
}

// Option configures a store at construction time.
type Option func(*storeOptions)

// WithMetrics exposes the store's statistics as Prometheus metrics under the
// given component prefix.
func WithMetrics(registry *metric.Registry, prefix string) Option {
	return func(o *storeOptions) {
		o.metricsReg = registry
		o.metricsPrefix = prefix
	}
}

// buildMetrics resolves options into an optional storeMetrics. A nil return
// with nil error means metrics were not requested.
func buildMetrics(opts []Option) (*storeMetrics, error) {
	var o storeOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.metricsReg == nil || o.metricsPrefix == "" {
		return nil, nil
	}
	return newStoreMetrics(o.metricsReg, o.metricsPrefix)
}
