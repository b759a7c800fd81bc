package pool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchCoversEveryIndexExactlyOnce(t *testing.T) {
	p := New(4)
	defer p.Shutdown()

	var mu sync.Mutex
	seen := make(map[int]bool)
	err := p.Dispatch(17, 4, func(threadIndex, from, to int) {
		for i := from; i < to; i++ {
			mu.Lock()
			seen[i] = true
			mu.Unlock()
		}
	})
	require.NoError(t, err)
	assert.Len(t, seen, 17)
	for i := 0; i < 17; i++ {
		assert.True(t, seen[i], "index %d not covered", i)
	}
}

func TestDispatchRejectsOutOfRangeActive(t *testing.T) {
	p := New(2)
	defer p.Shutdown()
	assert.Error(t, p.Dispatch(10, 3, func(int, int, int) {}))
	assert.Error(t, p.Dispatch(10, 0, func(int, int, int) {}))
}

func TestShutdownIdempotent(t *testing.T) {
	p := New(2)
	p.Shutdown()
	assert.NotPanics(t, func() { p.Shutdown() })
}

func TestThreadIndexStableAndInRange(t *testing.T) {
	p := New(3)
	defer p.Shutdown()

	var mu sync.Mutex
	indices := make(map[int]bool)
	err := p.Dispatch(9, 3, func(threadIndex, from, to int) {
		mu.Lock()
		indices[threadIndex] = true
		mu.Unlock()
	})
	require.NoError(t, err)
	assert.Len(t, indices, 3)
}
