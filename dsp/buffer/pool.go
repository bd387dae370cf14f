package buffer

// Pool is a free list of blocks with a common frame count.
//
// It is owned by a single goroutine (the render goroutine) and is not safe for
// concurrent use. A pool is pre-filled at construction so steady-state Get and
// Put do not allocate; Get on an exhausted pool falls back to allocating.
type Pool struct {
	free   []*Block
	frames int
}

// NewPool returns a Pool holding prealloc silent mono blocks of frames frames.
func NewPool(frames, prealloc int) *Pool {
	if prealloc < 0 {
		prealloc = 0
	}
	p := &Pool{
		free:   make([]*Block, 0, prealloc),
		frames: frames,
	}
	for range prealloc {
		p.free = append(p.free, NewBlock(1, frames))
	}
	return p
}

// Get returns a silent mono block. Callers must return it via Put when done.
func (p *Pool) Get() *Block {
	n := len(p.free)
	if n == 0 {
		return NewBlock(1, p.frames)
	}
	b := p.free[n-1]
	p.free[n-1] = nil
	p.free = p.free[:n-1]
	b.MakeSilent()
	return b
}

// Put returns b to the pool. Blocks with a different frame count are ignored.
// The caller must not use the block after calling Put.
func (p *Pool) Put(b *Block) {
	if b == nil || b.frames != p.frames {
		return
	}
	p.free = append(p.free, b)
}

// Len returns the number of blocks available without allocating.
func (p *Pool) Len() int {
	return len(p.free)
}
