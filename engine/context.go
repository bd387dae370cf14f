package engine

import (
	"context"
	"fmt"
	"io"
	"math"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-audiograph/decode"
	"github.com/cwbudde/algo-audiograph/dsp/buffer"
	"github.com/cwbudde/algo-audiograph/render"
)

// Context owns one audio graph. Its methods are safe for concurrent use by
// control goroutines; RenderQuantum must only be called by the render
// goroutine.
type Context struct {
	cfg      Config
	log      *logrus.Entry
	ids      *IDAllocator
	exec     *render.Executor
	decoders *decode.Registry
	dest     *DestinationNode

	commands chan render.Command
	events   chan render.Event
	dispatch chan render.Event

	mu      sync.Mutex
	ended   map[render.NodeID][]func()
	onError []func(error)

	latency   atomic.Int64
	closed    atomic.Bool
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewContext creates a context and starts its event dispatcher.
func NewContext(opts ...Option) (*Context, error) {
	cfg := ApplyOptions(opts...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if cfg.Decoders == nil {
		cfg.Decoders = decode.NewDefaultRegistry()
	}

	ids := NewIDAllocator(cfg.MaxNodes)
	destNode, err := render.NewNode(ids.Destination(), render.DestinationDef(cfg.Channels), cfg.QuantumSize)
	if err != nil {
		return nil, fmt.Errorf("create destination: %w", err)
	}

	c := &Context{
		cfg:      cfg,
		log:      cfg.Logger.WithField("component", "engine"),
		ids:      ids,
		decoders: cfg.Decoders,
		commands: make(chan render.Command, cfg.CommandQueueSize),
		events:   make(chan render.Event, cfg.EventQueueSize),
		dispatch: make(chan render.Event),
		ended:    make(map[render.NodeID][]func()),
		done:     make(chan struct{}),
	}
	c.exec, err = render.NewExecutor(render.Config{
		SampleRate:   cfg.SampleRate,
		QuantumSize:  cfg.QuantumSize,
		Channels:     cfg.Channels,
		MaxNodes:     cfg.MaxNodes,
		EventBacklog: 2 * cfg.MaxNodes,
		Logger:       cfg.Logger,
	}, destNode, c.commands, c.events)
	if err != nil {
		return nil, err
	}

	def := render.DestinationDef(cfg.Channels)
	c.dest = &DestinationNode{baseNode: &baseNode{
		ctx:      c,
		id:       ids.Destination(),
		kind:     def.Kind,
		inputs:   def.Inputs,
		outputs:  def.Outputs,
		channels: def.Channels,
	}}

	c.wg.Add(2)
	go c.pump()
	go c.dispatchLoop()

	c.log.WithFields(logrus.Fields{
		"function":     "NewContext",
		"sample_rate":  cfg.SampleRate,
		"quantum_size": cfg.QuantumSize,
		"channels":     cfg.Channels,
		"max_nodes":    cfg.MaxNodes,
	}).Debug("Audio context created")
	return c, nil
}

// Config returns the settings the context was created with.
func (c *Context) Config() Config { return c.cfg }

// SampleRate returns the render sample rate.
func (c *Context) SampleRate() float64 { return c.cfg.SampleRate }

// QuantumSize returns the frames per render quantum.
func (c *Context) QuantumSize() int { return c.cfg.QuantumSize }

// Channels returns the destination channel count.
func (c *Context) Channels() int { return c.cfg.Channels }

// IDs returns the context's id allocator.
func (c *Context) IDs() *IDAllocator { return c.ids }

// Destination returns the node whose input is rendered to the sink.
func (c *Context) Destination() *DestinationNode { return c.dest }

// CurrentFrame returns the index of the next frame to be rendered.
func (c *Context) CurrentFrame() int64 { return c.exec.Frame() }

// CurrentTime returns the context time in seconds of the next frame to be
// rendered.
func (c *Context) CurrentTime() float64 {
	return float64(c.exec.Frame()) / c.cfg.SampleRate
}

// BaseLatency returns the duration of one render quantum.
func (c *Context) BaseLatency() time.Duration {
	return time.Duration(float64(c.cfg.QuantumSize) / c.cfg.SampleRate * float64(time.Second))
}

// OutputLatency returns the latency last reported by the sink.
func (c *Context) OutputLatency() time.Duration {
	return time.Duration(c.latency.Load())
}

// SetOutputLatency records the output latency realized by the sink.
func (c *Context) SetOutputLatency(d time.Duration) {
	c.latency.Store(int64(d))
}

// RenderQuantum renders the next quantum. The returned block is owned by
// the context and valid until the next call.
func (c *Context) RenderQuantum() *buffer.Block {
	return c.exec.RenderQuantum()
}

// Render renders frames frames on the calling goroutine and returns them as
// a buffer at the context rate. It stops early with ctx's error.
func (c *Context) Render(ctx context.Context, frames int) (*buffer.AudioBuffer, error) {
	if frames < 0 {
		return nil, fmt.Errorf("%w: %d frames", ErrRange, frames)
	}
	out, err := buffer.NewAudioBuffer(c.cfg.Channels, frames, c.cfg.SampleRate)
	if err != nil {
		return nil, err
	}
	for pos := 0; pos < frames; pos += c.cfg.QuantumSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		b := c.RenderQuantum()
		n := min(c.cfg.QuantumSize, frames-pos)
		for ch := range min(b.Channels(), c.cfg.Channels) {
			copy(out.Channel(ch)[pos:pos+n], b.Channel(ch)[:n])
		}
	}
	return out, nil
}

// CreateBuffer returns a silent buffer.
func (c *Context) CreateBuffer(channels, length int, sampleRate float64) (*buffer.AudioBuffer, error) {
	b, err := buffer.NewAudioBuffer(channels, length, sampleRate)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotSupported, err)
	}
	return b, nil
}

// DecodeAudioData decodes r with the registered decoder for format and
// resamples the result to the context rate.
func (c *Context) DecodeAudioData(ctx context.Context, r io.Reader, format string) (*buffer.AudioBuffer, error) {
	b, err := c.decoders.Decode(ctx, format, r)
	if err != nil {
		return nil, err
	}
	if b.SampleRate() == c.cfg.SampleRate {
		return b, nil
	}
	c.log.WithFields(logrus.Fields{
		"function": "DecodeAudioData",
		"format":   format,
		"from":     b.SampleRate(),
		"to":       c.cfg.SampleRate,
	}).Debug("Resampling decoded audio")
	return b.Resample(c.cfg.SampleRate)
}

// OnError registers cb for errors detected on the render side, such as
// commands addressing a node that was already removed. Callbacks run on the
// dispatcher goroutine.
func (c *Context) OnError(cb func(error)) {
	if cb == nil {
		return
	}
	c.mu.Lock()
	c.onError = append(c.onError, cb)
	c.mu.Unlock()
}

// Close stops event dispatch and rejects further commands. Rendering keeps
// working so a sink can drain; render events from then on are discarded.
func (c *Context) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.exec.CloseEvents()
		close(c.done)
		c.wg.Wait()
		c.log.WithField("function", "Close").Debug("Audio context closed")
	})
	return nil
}

// send hands cmd to the render side, waiting at most CommandTimeout for room.
func (c *Context) send(cmd render.Command) error {
	if c.closed.Load() {
		return ErrClosed
	}
	select {
	case c.commands <- cmd:
		return nil
	default:
	}

	t := time.NewTimer(c.cfg.CommandTimeout)
	defer t.Stop()
	select {
	case c.commands <- cmd:
		return nil
	case <-c.done:
		return ErrClosed
	case <-t.C:
		c.log.WithFields(logrus.Fields{
			"function": "send",
			"command":  fmt.Sprintf("%T", cmd),
			"timeout":  c.cfg.CommandTimeout,
		}).Warn("Command queue full")
		return fmt.Errorf("%w after %v", ErrCommandQueueFull, c.cfg.CommandTimeout)
	}
}

// newNode allocates an id, builds the render node and hands it over.
func (c *Context) newNode(def render.NodeDef) (*baseNode, []*AudioParam, error) {
	if c.closed.Load() {
		return nil, nil, ErrClosed
	}
	id, err := c.ids.Allocate()
	if err != nil {
		return nil, nil, constructionError(def.Kind, err)
	}
	rn, err := render.NewNode(id, def, c.cfg.QuantumSize)
	if err != nil {
		c.ids.Release(id)
		return nil, nil, constructionError(def.Kind, err)
	}
	if err := c.send(render.AddNode{Node: rn}); err != nil {
		c.ids.Release(id)
		return nil, nil, err
	}

	params := make([]*AudioParam, len(def.Params))
	for i, d := range def.Params {
		params[i] = newAudioParam(c, id, i, d)
	}
	return &baseNode{
		ctx:      c,
		id:       id,
		kind:     def.Kind,
		inputs:   def.Inputs,
		outputs:  def.Outputs,
		channels: def.Channels,
	}, params, nil
}

func (c *Context) onEnded(id render.NodeID, cb func()) {
	if cb == nil {
		return
	}
	c.mu.Lock()
	c.ended[id] = append(c.ended[id], cb)
	c.mu.Unlock()
}

// pump moves events from the bounded render channel into an unbounded
// queue feeding the dispatcher.
func (c *Context) pump() {
	defer c.wg.Done()
	defer close(c.dispatch)

	var pending []render.Event
	for {
		var out chan<- render.Event
		var next render.Event
		if len(pending) > 0 {
			out = c.dispatch
			next = pending[0]
		}
		select {
		case ev := <-c.events:
			pending = append(pending, ev)
		case out <- next:
			pending[0] = render.Event{}
			pending = pending[1:]
		case <-c.done:
			return
		}
	}
}

func (c *Context) dispatchLoop() {
	defer c.wg.Done()
	for ev := range c.dispatch {
		c.handle(ev)
	}
}

func (c *Context) handle(ev render.Event) {
	switch ev.Kind {
	case render.EventEnded:
		c.mu.Lock()
		cbs := c.ended[ev.Node]
		delete(c.ended, ev.Node)
		c.mu.Unlock()
		for _, cb := range cbs {
			c.invoke(ev, func() { cb() })
		}
	case render.EventNodeRemoved:
		c.mu.Lock()
		delete(c.ended, ev.Node)
		c.mu.Unlock()
		c.ids.Release(ev.Node)
	case render.EventError:
		err := fmt.Errorf("node %v at frame %d: %w", ev.Node, ev.Frame, ev.Err)
		c.mu.Lock()
		handlers := slices.Clone(c.onError)
		c.mu.Unlock()
		if len(handlers) == 0 {
			c.log.WithFields(logrus.Fields{
				"function": "handle",
				"node":     ev.Node.String(),
				"error":    err.Error(),
			}).Warn("Unhandled render error")
			return
		}
		for _, h := range handlers {
			c.invoke(ev, func() { h(err) })
		}
	}
}

// invoke runs a user callback, logging a panic instead of killing the
// dispatcher.
func (c *Context) invoke(ev render.Event, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.log.WithFields(logrus.Fields{
				"function": "invoke",
				"event":    ev.Kind.String(),
				"node":     ev.Node.String(),
				"panic":    fmt.Sprint(r),
			}).Error("Event callback panicked")
		}
	}()
	fn()
}

func checkTime(name string, t float64) error {
	if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
		return fmt.Errorf("%w: %s %v", ErrRange, name, t)
	}
	return nil
}
