package render

import (
	"fmt"

	"github.com/cwbudde/algo-audiograph/dsp/automation"
	"github.com/cwbudde/algo-audiograph/dsp/buffer"
)

// Command is a control-to-render graph mutation. The set of commands is
// closed; each is applied exactly once, in arrival order, at the start of a
// quantum. A command that fails validation is dropped whole.
type Command interface {
	apply(e *Executor) error
}

// AddNode inserts a node built with NewNode into the arena.
type AddNode struct {
	Node *Node
}

func (c AddNode) apply(e *Executor) error {
	n := c.Node
	if n == nil {
		return fmt.Errorf("%w: add nil node", ErrGraphIntegrity)
	}
	i := n.id.Index()
	if i <= 0 || i >= len(e.nodes) {
		return fmt.Errorf("%w: node %v outside arena of %d", ErrGraphIntegrity, n.id, len(e.nodes))
	}
	if e.nodes[i] != nil {
		return fmt.Errorf("%w: arena slot %d already holds node %v", ErrGraphIntegrity, i, e.nodes[i].id)
	}
	n.attach(e.pool)
	e.nodes[i] = n
	e.dirty = true
	return nil
}

// Connect adds an edge from an output of From to an input of To. Connecting
// the same ports twice is a no-op.
type Connect struct {
	From, To      NodeID
	Output, Input int
}

func (c Connect) apply(e *Executor) error {
	from, err := e.lookup(c.From)
	if err != nil {
		return err
	}
	to, err := e.lookup(c.To)
	if err != nil {
		return err
	}
	if c.Output < 0 || c.Output >= from.outputs {
		return fmt.Errorf("%w: %s node %v has no output %d", ErrGraphIntegrity, from.kind, from.id, c.Output)
	}
	if c.Input < 0 || c.Input >= len(to.inputs) {
		return fmt.Errorf("%w: %s node %v has no input %d", ErrGraphIntegrity, to.kind, to.id, c.Input)
	}
	for _, ed := range to.inputs[c.Input] {
		if ed.from == c.From && ed.output == c.Output {
			return nil
		}
	}
	to.inputs[c.Input] = append(to.inputs[c.Input], edge{from: c.From, output: c.Output})
	from.outgoing++
	e.dirty = true
	return nil
}

// Disconnect removes edges leaving From. A zero To matches every consumer; a
// negative Output or Input matches every port.
type Disconnect struct {
	From, To      NodeID
	Output, Input int
}

func (c Disconnect) apply(e *Executor) error {
	from, err := e.lookup(c.From)
	if err != nil {
		return err
	}
	if !c.To.IsZero() {
		to, err := e.lookup(c.To)
		if err != nil {
			return err
		}
		e.removeEdges(from, to, c.Output, c.Input)
		return nil
	}
	for _, to := range e.nodes {
		if to != nil {
			e.removeEdges(from, to, c.Output, c.Input)
		}
	}
	return nil
}

// SetParamValue sets a parameter's value at the current render time.
type SetParamValue struct {
	Node  NodeID
	Param int
	Value float64
}

func (c SetParamValue) apply(e *Executor) error {
	p, err := e.lookupParam(c.Node, c.Param)
	if err != nil {
		return err
	}
	if err := p.timeline.SetValue(c.Value, e.now()); err != nil {
		return fmt.Errorf("node %v param %s: %w", c.Node, p.desc.Name, err)
	}
	return nil
}

// ScheduleParamEvent inserts an automation event. The Curve of a
// SetValueCurve event must not be modified after the command is sent.
type ScheduleParamEvent struct {
	Node  NodeID
	Param int
	Event automation.Event
}

func (c ScheduleParamEvent) apply(e *Executor) error {
	p, err := e.lookupParam(c.Node, c.Param)
	if err != nil {
		return err
	}
	if err := p.timeline.Insert(c.Event, e.now()); err != nil {
		return fmt.Errorf("node %v param %s: %w", c.Node, p.desc.Name, err)
	}
	return nil
}

// CancelParamEvents cancels automation from Time on. With Hold the value at
// Time is held.
type CancelParamEvents struct {
	Node  NodeID
	Param int
	Time  float64
	Hold  bool
}

func (c CancelParamEvents) apply(e *Executor) error {
	p, err := e.lookupParam(c.Node, c.Param)
	if err != nil {
		return err
	}
	if c.Hold {
		p.timeline.CancelAndHold(c.Time)
	} else {
		p.timeline.CancelScheduledValues(c.Time)
	}
	return nil
}

// Start schedules a source. Offset is honoured when HasOffset is set;
// Duration is +Inf for unbounded playback.
type Start struct {
	Node      NodeID
	When      float64
	Offset    float64
	HasOffset bool
	Duration  float64
}

func (c Start) apply(e *Executor) error {
	n, src, err := e.lookupSource(c.Node)
	if err != nil {
		return err
	}
	if err := src.start(c.When, c.Offset, c.HasOffset, c.Duration); err != nil {
		return fmt.Errorf("start %s node %v: %w", n.kind, n.id, err)
	}
	return nil
}

// Stop schedules the end of a started source. A later Stop replaces an
// earlier one.
type Stop struct {
	Node NodeID
	When float64
}

func (c Stop) apply(e *Executor) error {
	n, src, err := e.lookupSource(c.Node)
	if err != nil {
		return err
	}
	if err := src.stop(c.When); err != nil {
		return fmt.Errorf("stop %s node %v: %w", n.kind, n.id, err)
	}
	return nil
}

// SetLoop configures buffer-source looping. Start and End are in seconds;
// an End of 0 means the end of the buffer.
type SetLoop struct {
	Node       NodeID
	Loop       bool
	Start, End float64
}

func (c SetLoop) apply(e *Executor) error {
	n, err := e.lookup(c.Node)
	if err != nil {
		return err
	}
	l, ok := n.proc.(looper)
	if !ok {
		return unsupported(n, "looping")
	}
	l.setLoop(c.Loop, c.Start, c.End)
	return nil
}

// SetBuffer assigns the sample buffer of a buffer source.
type SetBuffer struct {
	Node   NodeID
	Buffer *buffer.AudioBuffer
}

func (c SetBuffer) apply(e *Executor) error {
	n, err := e.lookup(c.Node)
	if err != nil {
		return err
	}
	h, ok := n.proc.(bufferHolder)
	if !ok {
		return unsupported(n, "buffers")
	}
	h.setBuffer(c.Buffer)
	return nil
}

// SetChannelConfig replaces a node's input channel policy.
type SetChannelConfig struct {
	Node   NodeID
	Config ChannelConfig
}

func (c SetChannelConfig) apply(e *Executor) error {
	n, err := e.lookup(c.Node)
	if err != nil {
		return err
	}
	if err := c.Config.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrGraphIntegrity, err)
	}
	n.channels = c.Config
	return nil
}

// SetOscillatorType changes an oscillator's waveform.
type SetOscillatorType struct {
	Node NodeID
	Type Waveform
}

func (c SetOscillatorType) apply(e *Executor) error {
	n, err := e.lookup(c.Node)
	if err != nil {
		return err
	}
	w, ok := n.proc.(waveformer)
	if !ok {
		return unsupported(n, "waveforms")
	}
	w.setWaveform(c.Type)
	return nil
}

// Drop releases the control handle of a node. The node stays in the graph
// until it has no consumers and no tail.
type Drop struct {
	Node NodeID
}

func (c Drop) apply(e *Executor) error {
	n, err := e.lookup(c.Node)
	if err != nil {
		return err
	}
	if n == e.destination {
		return fmt.Errorf("%w: destination cannot be released", ErrGraphIntegrity)
	}
	n.released = true
	return nil
}

func unsupported(n *Node, what string) error {
	return fmt.Errorf("%w: %s node %v does not support %s", ErrGraphIntegrity, n.kind, n.id, what)
}
