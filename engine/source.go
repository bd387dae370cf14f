package engine

import (
	"fmt"
	"math"
	"sync"

	"github.com/cwbudde/algo-audiograph/dsp/buffer"
	"github.com/cwbudde/algo-audiograph/render"
)

// scheduledNode holds the start/stop state shared by source nodes.
type scheduledNode struct {
	*baseNode

	schedMu sync.Mutex
	started bool
}

// Start starts playback as soon as possible.
func (s *scheduledNode) Start() error { return s.StartAt(0) }

// StartAt starts playback at context time when. Times in the past start
// immediately. A source can be started only once.
func (s *scheduledNode) StartAt(when float64) error {
	return s.start(render.Start{When: when, Duration: math.Inf(1)})
}

func (s *scheduledNode) start(cmd render.Start) error {
	if err := checkTime("start time", cmd.When); err != nil {
		return err
	}
	if err := s.checkLive(); err != nil {
		return err
	}
	s.schedMu.Lock()
	defer s.schedMu.Unlock()
	if s.started {
		return fmt.Errorf("%w: %s node %v already started", ErrInvalidState, s.kind, s.id)
	}
	cmd.Node = s.id
	if err := s.ctx.send(cmd); err != nil {
		return err
	}
	s.started = true
	return nil
}

// Stop stops playback as soon as possible.
func (s *scheduledNode) Stop() error { return s.StopAt(0) }

// StopAt stops playback at context time when. A later call replaces the
// stop time; a stop time before the start time ends the source without
// output.
func (s *scheduledNode) StopAt(when float64) error {
	if err := checkTime("stop time", when); err != nil {
		return err
	}
	if err := s.checkLive(); err != nil {
		return err
	}
	s.schedMu.Lock()
	defer s.schedMu.Unlock()
	if !s.started {
		return fmt.Errorf("%w: %s node %v stopped before it was started", ErrInvalidState, s.kind, s.id)
	}
	return s.ctx.send(render.Stop{Node: s.id, When: when})
}

// OnEnded registers cb to run once the source has finished playing. cb runs
// on the context's dispatcher goroutine.
func (s *scheduledNode) OnEnded(cb func()) {
	s.ctx.onEnded(s.id, cb)
}

// BufferSourceNode plays an AudioBuffer.
type BufferSourceNode struct {
	scheduledNode
	playbackRate *AudioParam
	detune       *AudioParam

	mu        sync.Mutex
	buf       *buffer.AudioBuffer
	loop      bool
	loopStart float64
	loopEnd   float64
}

// CreateBufferSource adds a buffer source without a buffer.
func (c *Context) CreateBufferSource() (*BufferSourceNode, error) {
	b, params, err := c.newNode(render.NodeDef{
		Kind:      "buffer source",
		Outputs:   1,
		Channels:  defaultChannels(),
		Params:    render.BufferSourceParams(),
		Processor: render.NewBufferSource(),
	})
	if err != nil {
		return nil, err
	}
	return &BufferSourceNode{
		scheduledNode: scheduledNode{baseNode: b},
		playbackRate:  params[render.BufferSourcePlaybackRate],
		detune:        params[render.BufferSourceDetune],
	}, nil
}

func (b *BufferSourceNode) PlaybackRate() *AudioParam { return b.playbackRate }

func (b *BufferSourceNode) Detune() *AudioParam { return b.detune }

// StartAtWithOffset starts playback at when from offset seconds into the
// buffer.
func (b *BufferSourceNode) StartAtWithOffset(when, offset float64) error {
	return b.StartAtWithOffsetAndDuration(when, offset, math.Inf(1))
}

// StartAtWithOffsetAndDuration starts playback at when from offset seconds
// into the buffer and plays duration seconds of buffer content.
func (b *BufferSourceNode) StartAtWithOffsetAndDuration(when, offset, duration float64) error {
	if err := checkTime("offset", offset); err != nil {
		return err
	}
	if duration < 0 || math.IsNaN(duration) {
		return fmt.Errorf("%w: duration %v", ErrRange, duration)
	}
	return b.start(render.Start{When: when, Offset: offset, HasOffset: true, Duration: duration})
}

// SetBuffer assigns the buffer to play. It may be set to a non-nil buffer
// only once.
func (b *BufferSourceNode) SetBuffer(buf *buffer.AudioBuffer) error {
	if err := b.checkLive(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buf != nil && buf != nil {
		return fmt.Errorf("%w: buffer already set", ErrInvalidState)
	}
	if err := b.ctx.send(render.SetBuffer{Node: b.id, Buffer: buf}); err != nil {
		return err
	}
	b.buf = buf
	return nil
}

func (b *BufferSourceNode) Buffer() *buffer.AudioBuffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf
}

func (b *BufferSourceNode) Loop() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loop
}

func (b *BufferSourceNode) LoopStart() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loopStart
}

func (b *BufferSourceNode) LoopEnd() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loopEnd
}

func (b *BufferSourceNode) SetLoop(loop bool) error {
	return b.updateLoop(func() { b.loop = loop })
}

// SetLoopStart sets the loop start in seconds. Bounds that do not describe a
// non-empty region inside the buffer select the whole buffer.
func (b *BufferSourceNode) SetLoopStart(t float64) error {
	return b.updateLoop(func() { b.loopStart = t })
}

// SetLoopEnd sets the loop end in seconds; 0 means the end of the buffer.
func (b *BufferSourceNode) SetLoopEnd(t float64) error {
	return b.updateLoop(func() { b.loopEnd = t })
}

func (b *BufferSourceNode) updateLoop(change func()) error {
	if err := b.checkLive(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	loop, start, end := b.loop, b.loopStart, b.loopEnd
	change()
	err := b.ctx.send(render.SetLoop{Node: b.id, Loop: b.loop, Start: b.loopStart, End: b.loopEnd})
	if err != nil {
		b.loop, b.loopStart, b.loopEnd = loop, start, end
	}
	return err
}

// OscillatorNode generates a periodic waveform.
type OscillatorNode struct {
	scheduledNode
	frequency *AudioParam
	detune    *AudioParam

	mu       sync.Mutex
	waveform render.Waveform
}

// CreateOscillator adds a 440 Hz sine oscillator.
func (c *Context) CreateOscillator() (*OscillatorNode, error) {
	b, params, err := c.newNode(render.NodeDef{
		Kind:      "oscillator",
		Outputs:   1,
		Channels:  defaultChannels(),
		Params:    render.OscillatorParams(c.cfg.SampleRate),
		Processor: render.NewOscillator(render.Sine),
	})
	if err != nil {
		return nil, err
	}
	return &OscillatorNode{
		scheduledNode: scheduledNode{baseNode: b},
		frequency:     params[render.OscillatorFrequency],
		detune:        params[render.OscillatorDetune],
	}, nil
}

func (o *OscillatorNode) Frequency() *AudioParam { return o.frequency }

func (o *OscillatorNode) Detune() *AudioParam { return o.detune }

func (o *OscillatorNode) Type() render.Waveform {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.waveform
}

func (o *OscillatorNode) SetType(w render.Waveform) error {
	if w > render.Triangle {
		return fmt.Errorf("%w: waveform %d", ErrNotSupported, w)
	}
	if err := o.checkLive(); err != nil {
		return err
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.ctx.send(render.SetOscillatorType{Node: o.id, Type: w}); err != nil {
		return err
	}
	o.waveform = w
	return nil
}

// ConstantSourceNode outputs its a-rate offset while playing.
type ConstantSourceNode struct {
	scheduledNode
	offset *AudioParam
}

// CreateConstantSource adds a constant source with offset 1.
func (c *Context) CreateConstantSource() (*ConstantSourceNode, error) {
	b, params, err := c.newNode(render.NodeDef{
		Kind:      "constant source",
		Outputs:   1,
		Channels:  defaultChannels(),
		Params:    render.ConstantSourceParams(),
		Processor: render.NewConstantSource(),
	})
	if err != nil {
		return nil, err
	}
	return &ConstantSourceNode{
		scheduledNode: scheduledNode{baseNode: b},
		offset:        params[render.ConstantSourceOffset],
	}, nil
}

func (c *ConstantSourceNode) Offset() *AudioParam { return c.offset }
