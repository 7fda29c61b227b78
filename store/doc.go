// Package store provides the in-memory state derived from the inbound packet
// stream: per-node telemetry caches, a bounded FIFO message cache, and an
// append-only node registry.
//
// Each store is an independently lockable unit. Mutations hold a store's lock
// for the shortest possible critical section and locks are never nested
// across stores. Snapshots return copies that callers read without holding
// any lock, so queries never block the ingestion path for long.
//
// All stores keep always-on operation statistics; Prometheus export is opt-in
// via WithMetrics.
package store
