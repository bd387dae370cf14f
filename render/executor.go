package render

import (
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/petermattis/goid"
	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-audiograph/dsp/buffer"
)

// Config holds the fixed render settings of an Executor.
type Config struct {
	SampleRate  float64
	QuantumSize int
	// Channels is the destination channel count.
	Channels int
	// MaxNodes is the arena size, destination included.
	MaxNodes int
	// EventBacklog is the capacity for events that did not fit the event
	// channel. Events beyond it are dropped and counted.
	EventBacklog int
	Logger       *logrus.Entry
}

func (c Config) validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %v", ErrNotSupported, c.SampleRate)
	case c.QuantumSize <= 0:
		return fmt.Errorf("%w: quantum size %d", ErrNotSupported, c.QuantumSize)
	case c.Channels < 1 || c.Channels > MaxChannels:
		return fmt.Errorf("%w: %d channels", ErrNotSupported, c.Channels)
	case c.MaxNodes < 1:
		return fmt.Errorf("%w: max nodes %d", ErrNotSupported, c.MaxNodes)
	}
	return nil
}

// Stats describes the graph as of the last quantum.
type Stats struct {
	Nodes         int
	Edges         int
	FeedbackEdges int
	Backlog       int
	Dropped       int64
	PooledBlocks  int
}

const (
	unvisited uint8 = iota
	onStack
	visited
)

type dfsFrame struct {
	idx  int
	port int
	edge int
}

// Executor owns the render-side graph. RenderQuantum must be called from one
// goroutine at a time; concurrent calls are detected and answered with
// silence.
type Executor struct {
	cfg Config
	log *logrus.Entry

	commands     <-chan Command
	events       chan<- Event
	backlog      []Event
	eventsClosed atomic.Bool
	dropped      atomic.Int64
	warnedDrop   bool

	nodes       []*Node
	destination *Node
	order       []int
	marks       []uint8
	stack       []dfsFrame
	dirty       bool

	pool    *buffer.Pool
	silence *buffer.Block

	frame atomic.Int64
	owner atomic.Int64
}

// NewExecutor returns an executor with destination at arena index 0.
// destination must have one input and one output.
func NewExecutor(cfg Config, destination *Node, commands <-chan Command, events chan<- Event) (*Executor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if destination == nil || destination.id.Index() != 0 || len(destination.inputs) != 1 || destination.outputs != 1 {
		return nil, fmt.Errorf("%w: destination must sit at index 0 with one input and one output", ErrNotSupported)
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.EventBacklog <= 0 {
		cfg.EventBacklog = cfg.MaxNodes
	}

	e := &Executor{
		cfg:         cfg,
		log:         cfg.Logger.WithField("component", "render"),
		commands:    commands,
		events:      events,
		backlog:     make([]Event, 0, cfg.EventBacklog),
		nodes:       make([]*Node, cfg.MaxNodes),
		destination: destination,
		order:       make([]int, 0, cfg.MaxNodes),
		marks:       make([]uint8, cfg.MaxNodes),
		stack:       make([]dfsFrame, 0, cfg.MaxNodes),
		pool:        buffer.NewPool(cfg.QuantumSize, 2*cfg.MaxNodes),
		silence:     buffer.NewBlock(cfg.Channels, cfg.QuantumSize),
		dirty:       true,
	}
	destination.attach(e.pool)
	e.nodes[0] = destination
	return e, nil
}

// SampleRate returns the render sample rate.
func (e *Executor) SampleRate() float64 { return e.cfg.SampleRate }

// QuantumSize returns the frames per quantum.
func (e *Executor) QuantumSize() int { return e.cfg.QuantumSize }

// Channels returns the destination channel count.
func (e *Executor) Channels() int { return e.cfg.Channels }

// Frame returns the index of the next frame to render. Safe for concurrent
// use.
func (e *Executor) Frame() int64 { return e.frame.Load() }

func (e *Executor) now() float64 {
	return float64(e.frame.Load()) / e.cfg.SampleRate
}

// RenderQuantum renders one quantum and returns the destination block. The
// block is owned by the executor and valid until the next call.
func (e *Executor) RenderQuantum() *buffer.Block {
	g := goid.Get()
	if !e.owner.CompareAndSwap(0, g) {
		e.log.WithFields(logrus.Fields{
			"function":  "RenderQuantum",
			"goroutine": g,
			"owner":     e.owner.Load(),
		}).Error("Concurrent render quantum rejected")
		return e.silence
	}
	defer e.owner.Store(0)

	frame := e.frame.Load()
	e.flushBacklog()
	e.drainCommands(frame)
	if e.dirty {
		e.sortTopologically()
		e.dirty = false
	}

	scope := Scope{
		Frame:       frame,
		Time:        float64(frame) / e.cfg.SampleRate,
		SampleRate:  e.cfg.SampleRate,
		QuantumSize: e.cfg.QuantumSize,
	}
	failed := false
	for _, idx := range e.order {
		n := e.nodes[idx]
		e.gatherInputs(n)
		e.computeParams(n, scope.Time)
		e.prepareOutputs(n)
		scope.node = n
		tail, err := e.run(n, &scope)
		if err != nil {
			failed = true
			n.silenceOutputs()
			e.report(frame, n.id, err)
		}
		n.tail = tail
	}

	e.publishStaged(frame)
	e.prune(frame)
	e.frame.Add(int64(e.cfg.QuantumSize))

	if failed {
		return e.silence
	}
	return e.destination.out[0]
}

// Stats returns graph statistics. Call it from the render goroutine.
func (e *Executor) Stats() Stats {
	s := Stats{Backlog: len(e.backlog), Dropped: e.dropped.Load(), PooledBlocks: e.pool.Len()}
	for _, n := range e.nodes {
		if n == nil {
			continue
		}
		s.Nodes++
		for _, edges := range n.inputs {
			for _, ed := range edges {
				s.Edges++
				if ed.feedback {
					s.FeedbackEdges++
				}
			}
		}
	}
	return s
}

func (e *Executor) drainCommands(frame int64) {
	if e.commands == nil {
		return
	}
	for {
		select {
		case cmd, ok := <-e.commands:
			if !ok {
				e.commands = nil
				return
			}
			if err := cmd.apply(e); err != nil {
				e.report(frame, commandNode(cmd), err)
			}
		default:
			return
		}
	}
}

func commandNode(cmd Command) NodeID {
	switch c := cmd.(type) {
	case AddNode:
		if c.Node != nil {
			return c.Node.id
		}
	case Connect:
		return c.From
	case Disconnect:
		return c.From
	case SetParamValue:
		return c.Node
	case ScheduleParamEvent:
		return c.Node
	case CancelParamEvents:
		return c.Node
	case Start:
		return c.Node
	case Stop:
		return c.Node
	case SetLoop:
		return c.Node
	case SetBuffer:
		return c.Node
	case SetChannelConfig:
		return c.Node
	case SetOscillatorType:
		return c.Node
	case Drop:
		return c.Node
	}
	return 0
}

func (e *Executor) report(frame int64, id NodeID, err error) {
	e.log.WithFields(logrus.Fields{
		"function": "RenderQuantum",
		"node":     id.String(),
		"frame":    frame,
		"error":    err.Error(),
	}).Error("Render error")
	e.emit(Event{Kind: EventError, Node: id, Frame: frame, Err: err})
}

func (e *Executor) lookup(id NodeID) (*Node, error) {
	i := id.Index()
	if id.IsZero() || i >= len(e.nodes) || e.nodes[i] == nil || e.nodes[i].id != id {
		return nil, fmt.Errorf("%w: node %v does not exist", ErrGraphIntegrity, id)
	}
	return e.nodes[i], nil
}

func (e *Executor) lookupParam(id NodeID, idx int) (*param, error) {
	n, err := e.lookup(id)
	if err != nil {
		return nil, err
	}
	return n.param(idx)
}

func (e *Executor) lookupSource(id NodeID) (*Node, scheduledSource, error) {
	n, err := e.lookup(id)
	if err != nil {
		return nil, nil, err
	}
	src, ok := n.proc.(scheduledSource)
	if !ok {
		return nil, nil, unsupported(n, "scheduling")
	}
	return n, src, nil
}

// removeEdges deletes edges from -> to matching the port filters.
func (e *Executor) removeEdges(from, to *Node, output, input int) {
	for p, edges := range to.inputs {
		if input >= 0 && p != input {
			continue
		}
		kept := edges[:0]
		for _, ed := range edges {
			if ed.from == from.id && (output < 0 || ed.output == output) {
				from.outgoing--
				e.dirty = true
				continue
			}
			kept = append(kept, ed)
		}
		to.inputs[p] = kept
	}
}

// sortTopologically orders nodes so producers precede consumers, walking
// incoming edges depth-first from the destination and then from every node
// not reached yet. Edges back onto the DFS stack are marked as feedback.
func (e *Executor) sortTopologically() {
	e.order = e.order[:0]
	for i := range e.marks {
		e.marks[i] = unvisited
	}
	e.visit(0)
	for i, n := range e.nodes {
		if n != nil && e.marks[i] == unvisited {
			e.visit(i)
		}
	}
}

func (e *Executor) visit(root int) {
	stack := append(e.stack[:0], dfsFrame{idx: root})
	e.marks[root] = onStack
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		n := e.nodes[top.idx]
		if top.port >= len(n.inputs) {
			e.marks[top.idx] = visited
			e.order = append(e.order, top.idx)
			stack = stack[:len(stack)-1]
			continue
		}
		edges := n.inputs[top.port]
		if top.edge >= len(edges) {
			top.port++
			top.edge = 0
			continue
		}
		ed := &edges[top.edge]
		top.edge++
		src := ed.from.Index()
		switch e.marks[src] {
		case unvisited:
			ed.feedback = false
			e.marks[src] = onStack
			stack = append(stack, dfsFrame{idx: src})
		case onStack:
			ed.feedback = true
		default:
			ed.feedback = false
		}
	}
	e.stack = stack
}

// gatherInputs mixes every edge into the node's input blocks. A feedback
// edge reads its producer's output before the producer runs this quantum,
// which is the previous quantum's output.
func (e *Executor) gatherInputs(n *Node) {
	for p, edges := range n.inputs {
		widest := 0
		for _, ed := range edges {
			widest = max(widest, e.nodes[ed.from.Index()].out[ed.output].Channels())
		}
		in := n.in[p]
		in.SetChannels(n.channels.computed(widest))
		in.Zero()
		for _, ed := range edges {
			buffer.MixInto(in, e.nodes[ed.from.Index()].out[ed.output], n.channels.Interpretation)
		}
	}
}

func (e *Executor) computeParams(n *Node, t0 float64) {
	dt := 1 / e.cfg.SampleRate
	for i := range n.params {
		tl := n.params[i].timeline
		tl.Advance(t0)
		v := n.values[i]
		if len(v) == 1 {
			v[0] = tl.ValueAt(t0)
			continue
		}
		tl.Fill(v, t0, dt)
	}
}

func (e *Executor) prepareOutputs(n *Node) {
	channels := 1
	if len(n.in) > 0 {
		channels = n.in[0].Channels()
	}
	for _, out := range n.out {
		out.SetChannels(channels)
		out.Zero()
	}
}

func (e *Executor) run(n *Node, scope *Scope) (tail bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			tail = false
			err = fmt.Errorf("%w: %s node %v: %v", ErrProcessorPanic, n.kind, n.id, r)
		}
	}()
	return n.proc.Process(n.in, n.out, n.values, scope), nil
}

func (e *Executor) publishStaged(frame int64) {
	for _, idx := range e.order {
		n := e.nodes[idx]
		if n.staged == 0 {
			continue
		}
		if n.staged&EventEnded.bit() != 0 {
			e.emit(Event{Kind: EventEnded, Node: n.id, Frame: frame})
		}
		n.emitted |= n.staged
		n.staged = 0
	}
}

// prune removes nodes that are released or finished, have no consumers and
// report no tail.
func (e *Executor) prune(frame int64) {
	for _, idx := range e.order {
		n := e.nodes[idx]
		if n == nil || n == e.destination {
			continue
		}
		if n.outgoing > 0 || n.tail || !(n.released || n.finished) {
			continue
		}
		e.remove(n)
		e.emit(Event{Kind: EventNodeRemoved, Node: n.id, Frame: frame})
	}
}

func (e *Executor) remove(n *Node) {
	for p, edges := range n.inputs {
		for _, ed := range edges {
			if src := e.nodes[ed.from.Index()]; src != nil && src.id == ed.from {
				src.outgoing--
			}
		}
		n.inputs[p] = edges[:0]
	}
	n.detach(e.pool)
	e.nodes[n.id.Index()] = nil
	e.dirty = true
}

// CloseEvents tells the executor that events are no longer read. Pending
// and later events are dropped and counted. Safe for concurrent use.
func (e *Executor) CloseEvents() { e.eventsClosed.Store(true) }

// DroppedEvents returns the number of events dropped because the backlog was
// full or events were closed. Safe for concurrent use.
func (e *Executor) DroppedEvents() int64 { return e.dropped.Load() }

// emit sends ev without blocking. Events that do not fit the channel are
// kept in order in the backlog and retried at the next quantum; once the
// backlog is full they are dropped.
func (e *Executor) emit(ev Event) {
	if e.eventsClosed.Load() {
		e.dropped.Add(1)
		return
	}
	if len(e.backlog) == 0 && e.events != nil {
		select {
		case e.events <- ev:
			return
		default:
		}
	}
	if len(e.backlog) == cap(e.backlog) {
		e.dropped.Add(1)
		if !e.warnedDrop {
			e.warnedDrop = true
			e.log.WithFields(logrus.Fields{
				"function": "emit",
				"event":    ev.Kind.String(),
				"backlog":  len(e.backlog),
			}).Warn("Event backlog full, dropping events")
		}
		return
	}
	e.backlog = append(e.backlog, ev)
}

func (e *Executor) flushBacklog() {
	if e.eventsClosed.Load() && len(e.backlog) > 0 {
		e.dropped.Add(int64(len(e.backlog)))
		clear(e.backlog)
		e.backlog = e.backlog[:0]
		return
	}
	if e.events == nil {
		return
	}
	sent := 0
	for sent < len(e.backlog) {
		select {
		case e.events <- e.backlog[sent]:
			sent++
			continue
		default:
		}
		break
	}
	if sent == 0 {
		return
	}
	n := copy(e.backlog, e.backlog[sent:])
	clear(e.backlog[n:])
	e.backlog = e.backlog[:n]
}

// IsIntegrityError reports whether err came from a rejected command.
func IsIntegrityError(err error) bool {
	return errors.Is(err, ErrGraphIntegrity)
}
