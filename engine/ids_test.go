package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-audiograph/render"
)

func TestIDAllocatorReservesDestination(t *testing.T) {
	a := NewIDAllocator(4)
	assert.Equal(t, render.MakeNodeID(0, 1), a.Destination())
	assert.True(t, a.Live(a.Destination()))
	assert.Equal(t, 1, a.InUse())
	assert.Equal(t, 4, a.Capacity())

	a.Release(a.Destination())
	assert.True(t, a.Live(a.Destination()))
}

func TestIDAllocatorExhaustion(t *testing.T) {
	a := NewIDAllocator(3)
	first, err := a.Allocate()
	require.NoError(t, err)
	second, err := a.Allocate()
	require.NoError(t, err)
	assert.Equal(t, 1, first.Index())
	assert.Equal(t, 2, second.Index())

	_, err = a.Allocate()
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestIDAllocatorReuseBumpsGeneration(t *testing.T) {
	a := NewIDAllocator(2)
	id, err := a.Allocate()
	require.NoError(t, err)

	a.Release(id)
	assert.False(t, a.Live(id))
	assert.Equal(t, 1, a.InUse())

	again, err := a.Allocate()
	require.NoError(t, err)
	assert.Equal(t, id.Index(), again.Index())
	assert.Equal(t, id.Generation()+1, again.Generation())
	assert.NotEqual(t, id, again)

	// A stale id must not free the new occupant.
	a.Release(id)
	assert.True(t, a.Live(again))
}

func TestIDAllocatorConcurrentUse(t *testing.T) {
	a := NewIDAllocator(65)
	var wg sync.WaitGroup
	ids := make(chan render.NodeID, 64)
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := a.Allocate()
			if err == nil {
				ids <- id
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[int]bool)
	for id := range ids {
		assert.False(t, seen[id.Index()], "index %d handed out twice", id.Index())
		seen[id.Index()] = true
	}
	assert.Len(t, seen, 64)
	assert.Equal(t, 65, a.InUse())
}
