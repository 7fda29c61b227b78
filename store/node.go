package store

import (
	"sync"
)

// NodeInfo is what the registry records about a node beyond its numeric id.
type NodeInfo struct {
	LongID string `json:"long_id"`
}

// NodeRegistry is an append-only record of nodes ever observed on the mesh.
// The first sighting wins; entries are never updated or removed.
type NodeRegistry struct {
	mu      sync.RWMutex
	nodes   map[uint32]NodeInfo
	stats   *Statistics
	metrics *storeMetrics
}

// NewNodeRegistry creates an empty registry.
func NewNodeRegistry(opts ...Option) (*NodeRegistry, error) {
	metrics, err := buildMetrics(opts)
	if err != nil {
		return nil, err
	}

	return &NodeRegistry{
		nodes:   make(map[uint32]NodeInfo),
		stats:   NewStatistics(),
		metrics: metrics,
	}, nil
}

// Register records a node if unseen. Returns true when the node was added,
// false when it was already present (in which case nothing changes).
func (r *NodeRegistry) Register(nodeID uint32, longID string) bool {
	r.mu.Lock()
	if _, exists := r.nodes[nodeID]; exists {
		r.mu.Unlock()
		return false
	}
	r.nodes[nodeID] = NodeInfo{LongID: longID}
	size := len(r.nodes)
	r.mu.Unlock()

	r.stats.Insert()
	r.stats.UpdateSize(int64(size))
	r.metrics.recordInsert()
	r.metrics.updateSize(size)
	return true
}

// Snapshot returns a copy of the registry safe for lock-free reads.
func (r *NodeRegistry) Snapshot() map[uint32]NodeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[uint32]NodeInfo, len(r.nodes))
	for k, v := range r.nodes {
		out[k] = v
	}
	return out
}

// Len returns the number of registered nodes.
func (r *NodeRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.nodes)
}

// Stats returns the registry's operation statistics.
func (r *NodeRegistry) Stats() *Statistics {
	return r.stats
}
