package render

// Scope describes the quantum being processed and lets a processor stage
// lifecycle events for its node.
type Scope struct {
	// Frame is the absolute index of the first frame of the quantum.
	Frame int64
	// Time is Frame expressed in seconds.
	Time        float64
	SampleRate  float64
	QuantumSize int

	node *Node
}

// FrameTime returns the context time of frame i of the quantum.
func (s *Scope) FrameTime(i int) float64 {
	return float64(s.Frame+int64(i)) / s.SampleRate
}

// Stage records a lifecycle event for publication at the end of the quantum.
// Each kind is published at most once per node.
func (s *Scope) Stage(kind EventKind) {
	if s.node == nil || s.node.emitted&kind.bit() != 0 {
		return
	}
	s.node.staged |= kind.bit()
}

// Finish marks the node as permanently done. A finished node without
// downstream consumers or tail is pruned even if its handle was not released.
func (s *Scope) Finish() {
	if s.node != nil {
		s.node.finished = true
	}
}
