package store

import (
	"bytes"
	"container/list"
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"strconv"
	"sync"

	"github.com/lupettohf/meshttpd/errors"
)

// DefaultMessageCapacity is the bound on cached inbound messages.
const DefaultMessageCapacity = 100

// internalIDLength is the length of a generated message id in hex characters.
const internalIDLength = 10

// Message is one cached inbound text message. Immutable once stored.
type Message struct {
	ID     string
	NodeID uint32
	Text   string
}

// MessageList is a slice of messages in arrival order. It marshals to a JSON
// object keyed by id, preserving arrival order in the output.
type MessageList []Message

// MarshalJSON renders the list as an ordered id-keyed object.
func (l MessageList) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(m.ID)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		entry, err := json.Marshal(struct {
			NodeID  uint32 `json:"node_id"`
			Message string `json:"message"`
		}{m.NodeID, m.Text})
		if err != nil {
			return nil, err
		}
		buf.Write(entry)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MessageStore is a bounded, order-preserving cache of inbound text messages.
// Insertion beyond capacity evicts the single oldest entry by arrival order.
type MessageStore struct {
	mu       sync.RWMutex
	capacity int
	order    *list.List               // arrival order, oldest at front
	index    map[string]*list.Element // id -> list element
	stats    *Statistics
	metrics  *storeMetrics
}

// NewMessageStore creates a message store with the given capacity.
// A capacity of zero or less falls back to DefaultMessageCapacity.
func NewMessageStore(capacity int, opts ...Option) (*MessageStore, error) {
	if capacity <= 0 {
		capacity = DefaultMessageCapacity
	}

	metrics, err := buildMetrics(opts)
	if err != nil {
		return nil, err
	}

	return &MessageStore{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element),
		stats:    NewStatistics(),
		metrics:  metrics,
	}, nil
}

// Insert caches a message and returns its generated internal id.
// The id is unique within the store at time of insertion; the astronomically
// unlikely collision is handled by regenerating.
func (s *MessageStore) Insert(nodeID uint32, text string) (string, error) {
	s.mu.Lock()

	var id string
	for {
		var err error
		id, err = generateInternalID(nodeID, text)
		if err != nil {
			s.mu.Unlock()
			return "", errors.WrapTransient(err, "MessageStore", "Insert", "generate id")
		}
		if _, exists := s.index[id]; !exists {
			break
		}
	}

	element := s.order.PushBack(Message{ID: id, NodeID: nodeID, Text: text})
	s.index[id] = element

	evicted := false
	if s.order.Len() > s.capacity {
		oldest := s.order.Front()
		s.order.Remove(oldest)
		delete(s.index, oldest.Value.(Message).ID)
		evicted = true
	}

	size := s.order.Len()
	s.mu.Unlock()

	s.stats.Insert()
	s.stats.UpdateSize(int64(size))
	s.metrics.recordInsert()
	s.metrics.updateSize(size)
	if evicted {
		s.stats.Eviction()
		s.metrics.recordEviction()
	}

	return id, nil
}

// Delete removes a message by id. Returns ErrNotFound when absent.
func (s *MessageStore) Delete(id string) error {
	s.mu.Lock()

	element, exists := s.index[id]
	if !exists {
		s.mu.Unlock()
		return errors.WrapInvalid(errors.ErrNotFound, "MessageStore", "Delete", "lookup message "+id)
	}

	s.order.Remove(element)
	delete(s.index, id)
	size := s.order.Len()
	s.mu.Unlock()

	s.stats.Delete()
	s.stats.UpdateSize(int64(size))
	s.metrics.recordDelete()
	s.metrics.updateSize(size)

	return nil
}

// Snapshot returns the cached messages in arrival order. The returned slice
// is a copy safe to read without any lock.
func (s *MessageStore) Snapshot() MessageList {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(MessageList, 0, s.order.Len())
	for e := s.order.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(Message))
	}
	return out
}

// Len returns the number of cached messages.
func (s *MessageStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.order.Len()
}

// Capacity returns the store's configured bound.
func (s *MessageStore) Capacity() int {
	return s.capacity
}

// Stats returns the store's operation statistics.
func (s *MessageStore) Stats() *Statistics {
	return s.stats
}

// generateInternalID derives a short id from fresh random bytes, the sender
// node id, and the message text.
func generateInternalID(nodeID uint32, text string) (string, error) {
	random := make([]byte, 8)
	if _, err := rand.Read(random); err != nil {
		return "", err
	}

	h := md5.New()
	h.Write(random)
	h.Write([]byte(strconv.FormatUint(uint64(nodeID), 10)))
	h.Write([]byte(text))

	return hex.EncodeToString(h.Sum(nil))[:internalIDLength], nil
}
