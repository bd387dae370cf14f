package engine

import (
	"fmt"
	"sync"

	"github.com/cwbudde/algo-audiograph/dsp/buffer"
	"github.com/cwbudde/algo-audiograph/render"
)

// Node is the control handle shared by every node kind.
type Node interface {
	ID() render.NodeID
	Context() *Context
	Kind() string
	NumberOfInputs() int
	NumberOfOutputs() int
}

// baseNode implements connections, channel configuration and release for
// every node kind.
type baseNode struct {
	ctx     *Context
	id      render.NodeID
	kind    string
	inputs  int
	outputs int

	mu       sync.Mutex
	channels render.ChannelConfig
	released bool
}

func (n *baseNode) ID() render.NodeID { return n.id }

func (n *baseNode) Context() *Context { return n.ctx }

func (n *baseNode) Kind() string { return n.kind }

func (n *baseNode) NumberOfInputs() int { return n.inputs }

func (n *baseNode) NumberOfOutputs() int { return n.outputs }

// Connect connects output 0 to input 0 of dst.
func (n *baseNode) Connect(dst Node) error {
	return n.ConnectPorts(dst, 0, 0)
}

// ConnectPorts connects output to input of dst. Connecting the same ports
// twice has no effect.
func (n *baseNode) ConnectPorts(dst Node, output, input int) error {
	if err := n.checkPeer(dst); err != nil {
		return err
	}
	if output < 0 || output >= n.outputs {
		return fmt.Errorf("%w: %s has no output %d", ErrIndexOutOfRange, n.kind, output)
	}
	if input < 0 || input >= dst.NumberOfInputs() {
		return fmt.Errorf("%w: %s has no input %d", ErrIndexOutOfRange, dst.Kind(), input)
	}
	return n.ctx.send(render.Connect{From: n.id, To: dst.ID(), Output: output, Input: input})
}

// Disconnect removes every connection leaving this node.
func (n *baseNode) Disconnect() error {
	if err := n.checkLive(); err != nil {
		return err
	}
	return n.ctx.send(render.Disconnect{From: n.id, Output: -1, Input: -1})
}

// DisconnectOutput removes every connection leaving output.
func (n *baseNode) DisconnectOutput(output int) error {
	if err := n.checkLive(); err != nil {
		return err
	}
	if output < 0 || output >= n.outputs {
		return fmt.Errorf("%w: %s has no output %d", ErrIndexOutOfRange, n.kind, output)
	}
	return n.ctx.send(render.Disconnect{From: n.id, Output: output, Input: -1})
}

// DisconnectFrom removes every connection from this node to dst.
func (n *baseNode) DisconnectFrom(dst Node) error {
	if err := n.checkPeer(dst); err != nil {
		return err
	}
	return n.ctx.send(render.Disconnect{From: n.id, To: dst.ID(), Output: -1, Input: -1})
}

// DisconnectPorts removes the connection from output to input of dst.
func (n *baseNode) DisconnectPorts(dst Node, output, input int) error {
	if err := n.checkPeer(dst); err != nil {
		return err
	}
	if output < 0 || output >= n.outputs {
		return fmt.Errorf("%w: %s has no output %d", ErrIndexOutOfRange, n.kind, output)
	}
	if input < 0 || input >= dst.NumberOfInputs() {
		return fmt.Errorf("%w: %s has no input %d", ErrIndexOutOfRange, dst.Kind(), input)
	}
	return n.ctx.send(render.Disconnect{From: n.id, To: dst.ID(), Output: output, Input: input})
}

// Release drops the handle. The render side keeps the node while it still
// feeds other nodes or has a tail, then frees it. Any further call on the
// handle fails with ErrInvalidState.
func (n *baseNode) Release() error {
	if n.id == n.ctx.ids.Destination() {
		return fmt.Errorf("%w: destination cannot be released", ErrInvalidState)
	}
	n.mu.Lock()
	if n.released {
		n.mu.Unlock()
		return fmt.Errorf("%w: %s node %v already released", ErrInvalidState, n.kind, n.id)
	}
	n.released = true
	n.mu.Unlock()
	return n.ctx.send(render.Drop{Node: n.id})
}

// ChannelCount returns the count used by the clamped-max and explicit modes.
func (n *baseNode) ChannelCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.channels.Count
}

// ChannelCountMode returns how input channel counts are computed.
func (n *baseNode) ChannelCountMode() render.CountMode {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.channels.Mode
}

// ChannelInterpretation returns how inputs are up- and down-mixed.
func (n *baseNode) ChannelInterpretation() buffer.Interpretation {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.channels.Interpretation
}

func (n *baseNode) SetChannelCount(count int) error {
	return n.updateChannels(func(c *render.ChannelConfig) { c.Count = count })
}

func (n *baseNode) SetChannelCountMode(mode render.CountMode) error {
	if mode > render.CountExplicit {
		return fmt.Errorf("%w: channel count mode %d", ErrNotSupported, mode)
	}
	return n.updateChannels(func(c *render.ChannelConfig) { c.Mode = mode })
}

func (n *baseNode) SetChannelInterpretation(in buffer.Interpretation) error {
	if in != buffer.Speakers && in != buffer.Discrete {
		return fmt.Errorf("%w: channel interpretation %d", ErrNotSupported, in)
	}
	return n.updateChannels(func(c *render.ChannelConfig) { c.Interpretation = in })
}

func (n *baseNode) updateChannels(change func(*render.ChannelConfig)) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.released {
		return fmt.Errorf("%w: %s node %v released", ErrInvalidState, n.kind, n.id)
	}
	next := n.channels
	change(&next)
	if err := next.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrNotSupported, err)
	}
	if err := n.ctx.send(render.SetChannelConfig{Node: n.id, Config: next}); err != nil {
		return err
	}
	n.channels = next
	return nil
}

func (n *baseNode) checkLive() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.released {
		return fmt.Errorf("%w: %s node %v released", ErrInvalidState, n.kind, n.id)
	}
	return nil
}

func (n *baseNode) checkPeer(dst Node) error {
	if err := n.checkLive(); err != nil {
		return err
	}
	if dst == nil || dst.Context() != n.ctx {
		return fmt.Errorf("%w: node belongs to another context", ErrInvalidAccess)
	}
	return nil
}
