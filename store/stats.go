package store

import (
	"sync"
	"sync/atomic"
	"time"
)

// Statistics tracks store operation counts. Always enabled; Prometheus
// export is layered on top via options.
type Statistics struct {
	// Atomic counters for thread-safe updates
	inserts   int64
	updates   int64
	deletes   int64
	evictions int64

	// Protected by mutex
	mu          sync.RWMutex
	startTime   time.Time
	currentSize int64
	maxSize     int64
}

// NewStatistics creates a new statistics tracker.
func NewStatistics() *Statistics {
	return &Statistics{
		startTime: time.Now(),
	}
}

// Insert records a new entry.
func (s *Statistics) Insert() {
	atomic.AddInt64(&s.inserts, 1)
}

// Update records an overwrite of an existing entry.
func (s *Statistics) Update() {
	atomic.AddInt64(&s.updates, 1)
}

// Delete records an explicit removal.
func (s *Statistics) Delete() {
	atomic.AddInt64(&s.deletes, 1)
}

// Eviction records a capacity eviction.
func (s *Statistics) Eviction() {
	atomic.AddInt64(&s.evictions, 1)
}

// UpdateSize updates the current store size.
func (s *Statistics) UpdateSize(size int64) {
	s.mu.Lock()
	s.currentSize = size
	if size > s.maxSize {
		s.maxSize = size
	}
	s.mu.Unlock()
}

// Inserts returns the total number of inserts.
func (s *Statistics) Inserts() int64 {
	return atomic.LoadInt64(&s.inserts)
}

// Updates returns the total number of overwrites.
func (s *Statistics) Updates() int64 {
	return atomic.LoadInt64(&s.updates)
}

// Deletes returns the total number of explicit removals.
func (s *Statistics) Deletes() int64 {
	return atomic.LoadInt64(&s.deletes)
}

// Evictions returns the total number of capacity evictions.
func (s *Statistics) Evictions() int64 {
	return atomic.LoadInt64(&s.evictions)
}

// Size returns the current store size.
func (s *Statistics) Size() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.currentSize
}

// MaxSize returns the largest size the store has reached.
func (s *Statistics) MaxSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxSize
}

// Uptime returns how long the store has existed.
func (s *Statistics) Uptime() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.startTime)
}
