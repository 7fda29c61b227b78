// Package metric provides Prometheus metrics management for meshttpd.
//
// A single Registry owns the prometheus registry, the core daemon metrics
// (connection state, packet counters, HTTP request counters), and the
// per-component registrations added by the stores. The Registry's Handler
// serves everything at /metrics.
package metric
