package render

import (
	"fmt"
	"strings"

	"github.com/cwbudde/algo-audiograph/dsp/buffer"
)

// MaxChannels bounds every channel count the graph handles.
const MaxChannels = 32

const edgeCapacity = 4

// CountMode selects how a node derives an input's channel count from its
// connections.
type CountMode uint8

const (
	// CountMax uses the largest channel count among the connections.
	CountMax CountMode = iota
	// CountClampedMax is CountMax limited to ChannelConfig.Count.
	CountClampedMax
	// CountExplicit always uses ChannelConfig.Count.
	CountExplicit
)

func (m CountMode) String() string {
	switch m {
	case CountClampedMax:
		return "clamped-max"
	case CountExplicit:
		return "explicit"
	default:
		return "max"
	}
}

// ParseCountMode parses the names produced by CountMode.String.
func ParseCountMode(s string) (CountMode, error) {
	switch strings.ToLower(s) {
	case "max":
		return CountMax, nil
	case "clamped-max":
		return CountClampedMax, nil
	case "explicit":
		return CountExplicit, nil
	}
	return 0, fmt.Errorf("%w: channel count mode %q", ErrNotSupported, s)
}

// ChannelConfig is a node's input channel policy.
type ChannelConfig struct {
	Count          int
	Mode           CountMode
	Interpretation buffer.Interpretation
}

// Validate checks the count range.
func (c ChannelConfig) Validate() error {
	if c.Count < 1 || c.Count > MaxChannels {
		return fmt.Errorf("%w: channel count %d outside [1, %d]", ErrNotSupported, c.Count, MaxChannels)
	}
	return nil
}

// computed returns the channel count of an input whose widest connection has
// widest channels (0 when unconnected).
func (c ChannelConfig) computed(widest int) int {
	switch c.Mode {
	case CountExplicit:
		return c.Count
	case CountClampedMax:
		return min(max(widest, 1), c.Count)
	default:
		return max(widest, 1)
	}
}

// NodeDef describes a node to build. Everything a node needs is allocated from
// the definition by NewNode, on the calling goroutine.
type NodeDef struct {
	Kind      string
	Inputs    int
	Outputs   int
	Channels  ChannelConfig
	Params    []ParamDescriptor
	Processor Processor
}

type edge struct {
	from     NodeID
	output   int
	feedback bool
}

// Node is the render-side state of one graph node. After it is handed to an
// Executor through AddNode it belongs to the render goroutine.
type Node struct {
	id       NodeID
	kind     string
	proc     Processor
	channels ChannelConfig
	params   []param
	values   ParamValues
	inputs   [][]edge
	outputs  int

	in  []*buffer.Block
	out []*buffer.Block

	outgoing int
	released bool
	finished bool
	tail     bool
	staged   uint8
	emitted  uint8
}

// NewNode validates def and builds a node with its parameter timelines, value
// buffers and edge lists preallocated for quantumSize frames.
func NewNode(id NodeID, def NodeDef, quantumSize int) (*Node, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("%w: zero node id", ErrNotSupported)
	}
	if def.Processor == nil {
		return nil, fmt.Errorf("%w: %s node without processor", ErrNotSupported, def.Kind)
	}
	if def.Inputs < 0 || def.Outputs < 0 {
		return nil, fmt.Errorf("%w: %s node with %d inputs, %d outputs",
			ErrNotSupported, def.Kind, def.Inputs, def.Outputs)
	}
	if quantumSize <= 0 {
		return nil, fmt.Errorf("%w: quantum size %d", ErrNotSupported, quantumSize)
	}
	if err := def.Channels.Validate(); err != nil {
		return nil, err
	}

	n := &Node{
		id:       id,
		kind:     def.Kind,
		proc:     def.Processor,
		channels: def.Channels,
		params:   make([]param, len(def.Params)),
		values:   make(ParamValues, len(def.Params)),
		inputs:   make([][]edge, def.Inputs),
		outputs:  def.Outputs,
		in:       make([]*buffer.Block, 0, def.Inputs),
		out:      make([]*buffer.Block, 0, def.Outputs),
	}
	for i, d := range def.Params {
		n.params[i] = param{desc: d, timeline: d.NewTimeline()}
		if d.Rate == KRate {
			n.values[i] = make([]float64, 1)
		} else {
			n.values[i] = make([]float64, quantumSize)
		}
	}
	for i := range n.inputs {
		n.inputs[i] = make([]edge, 0, edgeCapacity)
	}
	return n, nil
}

// ID returns the node's id.
func (n *Node) ID() NodeID { return n.id }

// Kind returns the node kind name.
func (n *Node) Kind() string { return n.kind }

func (n *Node) attach(pool *buffer.Pool) {
	n.in = n.in[:0]
	for range n.inputs {
		n.in = append(n.in, pool.Get())
	}
	n.out = n.out[:0]
	for range n.outputs {
		n.out = append(n.out, pool.Get())
	}
}

func (n *Node) detach(pool *buffer.Pool) {
	for i, b := range n.in {
		pool.Put(b)
		n.in[i] = nil
	}
	for i, b := range n.out {
		pool.Put(b)
		n.out[i] = nil
	}
	n.in = n.in[:0]
	n.out = n.out[:0]
}

func (n *Node) param(i int) (*param, error) {
	if i < 0 || i >= len(n.params) {
		return nil, fmt.Errorf("%w: %s node %v has no parameter %d",
			ErrGraphIntegrity, n.kind, n.id, i)
	}
	return &n.params[i], nil
}

func (n *Node) silenceOutputs() {
	for _, b := range n.out {
		b.MakeSilent()
	}
}
