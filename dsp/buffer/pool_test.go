package buffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPoolReusesBlocks(t *testing.T) {
	p := NewPool(16, 2)
	assert.Equal(t, 2, p.Len())

	b := p.Get()
	b.SetChannels(2)
	b.Channel(1)[3] = 7
	p.Put(b)

	again := p.Get()
	assert.Same(t, b, again)
	assert.Equal(t, 1, again.Channels())
	assert.True(t, again.IsSilent())
}

func TestPoolGetWhenEmptyAllocates(t *testing.T) {
	p := NewPool(8, 0)
	b := p.Get()
	assert.NotNil(t, b)
	assert.Equal(t, 8, b.Frames())
}

func TestPoolPutIgnoresForeignBlocks(t *testing.T) {
	p := NewPool(8, 0)
	p.Put(NewBlock(1, 4))
	p.Put(nil)
	assert.Equal(t, 0, p.Len())
}
