package render

import "fmt"

// NodeID addresses a node in the render arena. The low 32 bits are the arena
// index and the high 32 bits a generation that changes every time the index is
// reused, so commands for a removed node are detected instead of hitting its
// successor. The zero NodeID addresses nothing.
type NodeID uint64

// MakeNodeID packs an arena index and generation.
func MakeNodeID(index int, generation uint32) NodeID {
	return NodeID(uint64(generation)<<32 | uint64(uint32(index)))
}

// Index returns the arena index.
func (id NodeID) Index() int { return int(uint32(id)) }

// Generation returns the reuse generation.
func (id NodeID) Generation() uint32 { return uint32(id >> 32) }

// IsZero reports whether id is the zero NodeID.
func (id NodeID) IsZero() bool { return id == 0 }

func (id NodeID) String() string {
	return fmt.Sprintf("%d.%d", id.Index(), id.Generation())
}
