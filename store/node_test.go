package store

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNodeRegistry(t *testing.T) *NodeRegistry {
	t.Helper()
	r, err := NewNodeRegistry()
	require.NoError(t, err)
	return r
}

func TestRegisterFirstSeenWins(t *testing.T) {
	r := newTestNodeRegistry(t)

	assert.True(t, r.Register(42, "!0000002a"))
	// Second sighting with a different long id is a no-op
	assert.False(t, r.Register(42, "!different"))

	snapshot := r.Snapshot()
	require.Len(t, snapshot, 1)
	assert.Equal(t, "!0000002a", snapshot[42].LongID)
}

func TestRegisterDistinctNodes(t *testing.T) {
	r := newTestNodeRegistry(t)

	assert.True(t, r.Register(1, "!00000001"))
	assert.True(t, r.Register(2, "!00000002"))

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, int64(2), r.Stats().Inserts())
}

func TestNodeSnapshotIsACopy(t *testing.T) {
	r := newTestNodeRegistry(t)
	r.Register(1, "!00000001")

	snapshot := r.Snapshot()
	snapshot[99] = NodeInfo{LongID: "!intruder"}

	assert.Len(t, r.Snapshot(), 1)
}

func TestRegisterConcurrent(t *testing.T) {
	r := newTestNodeRegistry(t)

	var wg sync.WaitGroup
	added := make([]int, 8)
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if r.Register(uint32(i), "!first") {
					added[w]++
				}
			}
		}(w)
	}
	wg.Wait()

	total := 0
	for _, n := range added {
		total += n
	}
	// Each node id was added exactly once across all workers
	assert.Equal(t, 100, total)
	assert.Equal(t, 100, r.Len())
}
