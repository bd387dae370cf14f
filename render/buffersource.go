package render

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-audiograph/dsp/buffer"
	"github.com/cwbudde/algo-audiograph/dsp/interp"
)

// Buffer source parameter indices.
const (
	BufferSourcePlaybackRate = iota
	BufferSourceDetune
)

// BufferSourceParams returns the parameters of a buffer source. Both are
// k-rate.
func BufferSourceParams() []ParamDescriptor {
	return []ParamDescriptor{
		{Name: "playbackRate", Default: 1, Min: -MaxParamValue, Max: MaxParamValue, Rate: KRate},
		{Name: "detune", Default: 0, Min: -MaxParamValue, Max: MaxParamValue, Rate: KRate},
	}
}

// BufferSource plays an AudioBuffer.
//
// The read position is kept in buffer frames and advances by
// playbackRate * 2^(detune/1200) * bufferRate/contextRate per output frame.
// Samples between frames are linearly interpolated. With looping enabled the
// position wraps inside [loopStart, loopEnd) once it has reached that region
// or lies past it in the direction of the rate, however looping was switched
// on. The duration limit counts buffer content played, not wall time.
type BufferSource struct {
	sched schedule
	buf   *buffer.AudioBuffer

	offset    float64
	hasOffset bool
	duration  float64

	loop      bool
	loopStart float64
	loopEnd   float64

	pos     float64
	played  float64
	begun   bool
	entered bool
}

// NewBufferSource returns an unscheduled buffer source without a buffer.
func NewBufferSource() *BufferSource {
	return &BufferSource{duration: math.Inf(1)}
}

func (b *BufferSource) start(when, offset float64, hasOffset bool, duration float64) error {
	if hasOffset && (offset < 0 || math.IsNaN(offset)) {
		return fmt.Errorf("%w: offset %v", ErrInvalidState, offset)
	}
	if duration < 0 || math.IsNaN(duration) {
		return fmt.Errorf("%w: duration %v", ErrInvalidState, duration)
	}
	if err := b.sched.setStart(when); err != nil {
		return err
	}
	b.offset = offset
	b.hasOffset = hasOffset
	b.duration = duration
	return nil
}

func (b *BufferSource) stop(when float64) error { return b.sched.setStop(when) }

func (b *BufferSource) setLoop(loop bool, start, end float64) {
	b.loop = loop
	b.loopStart = start
	b.loopEnd = end
}

func (b *BufferSource) setBuffer(buf *buffer.AudioBuffer) { b.buf = buf }

// loopRegion returns the loop bounds in buffer frames. Unset or invalid
// bounds select the whole buffer.
func (b *BufferSource) loopRegion() (float64, float64) {
	sr := b.buf.SampleRate()
	length := float64(b.buf.Length())
	ls := math.Max(b.loopStart*sr, 0)
	le := length
	if b.loopEnd > 0 {
		le = math.Min(b.loopEnd*sr, length)
	}
	if ls >= le {
		return 0, length
	}
	return ls, le
}

// Process implements Processor.
func (b *BufferSource) Process(_, outputs []*buffer.Block, params ParamValues, scope *Scope) bool {
	if !b.sched.pending() {
		return false
	}
	out := outputs[0]
	if b.buf == nil {
		b.idle(scope, out.Frames())
		return b.sched.pending()
	}
	out.SetChannels(b.buf.NumberOfChannels())

	step := params.At(BufferSourcePlaybackRate, 0) *
		math.Exp2(params.At(BufferSourceDetune, 0)/1200) *
		b.buf.SampleRate() / scope.SampleRate
	ls, le := b.loopRegion()
	length := float64(b.buf.Length())
	limit := b.duration * b.buf.SampleRate()

	for i := range out.Frames() {
		t := scope.FrameTime(i)
		if b.sched.waiting(t) {
			continue
		}
		if b.sched.expired(t) || b.played >= limit || length == 0 {
			b.sched.end(scope)
			break
		}
		if !b.begun {
			b.begin(step, le, length)
		}
		b.enterLoop(step, ls, le)
		if !(b.loop && b.entered) && (b.pos < 0 || b.pos >= length) {
			b.sched.end(scope)
			break
		}
		b.read(out, i, ls, le)
		b.pos += step
		b.played += math.Abs(step)
	}
	return b.sched.pending()
}

// idle runs the schedule of a source without a buffer: silence until stop.
func (b *BufferSource) idle(scope *Scope, frames int) {
	for i := range frames {
		t := scope.FrameTime(i)
		if !b.sched.waiting(t) && b.sched.expired(t) {
			b.sched.end(scope)
			return
		}
	}
}

func (b *BufferSource) begin(step, le, length float64) {
	b.begun = true
	switch {
	case b.hasOffset:
		b.pos = b.offset * b.buf.SampleRate()
	case step < 0 && b.loop:
		b.pos = le - 1
	case step < 0:
		b.pos = length - 1
	default:
		b.pos = 0
	}
}

// enterLoop marks the loop region as entered once the position lies inside
// it or beyond it in the direction of travel, and wraps an entered position
// back into the region. Looping may be switched on at any time.
func (b *BufferSource) enterLoop(step, ls, le float64) {
	if !b.loop {
		return
	}
	if !b.entered {
		b.entered = (b.pos >= ls && b.pos < le) ||
			(step > 0 && b.pos >= le) ||
			(step < 0 && b.pos < ls)
	}
	if b.entered && (b.pos >= le || b.pos < ls) {
		b.pos = wrap(b.pos, ls, le)
	}
}

func (b *BufferSource) read(out *buffer.Block, frame int, ls, le float64) {
	i := int(math.Floor(b.pos))
	frac := b.pos - float64(i)
	next := i + 1
	if b.loop && b.entered && float64(next) >= le {
		next = int(wrap(float64(next), ls, le))
	}
	last := b.buf.Length() - 1
	next = min(next, last)
	i = min(max(i, 0), last)
	for ch := range b.buf.NumberOfChannels() {
		data := b.buf.Channel(ch)
		out.Channel(ch)[frame] = interp.Linear2(frac, data[i], data[next])
	}
}

// wrap maps p into [ls, le) modulo the region length.
func wrap(p, ls, le float64) float64 {
	span := le - ls
	r := math.Mod(p-ls, span)
	if r < 0 {
		r += span
	}
	if w := ls + r; w < le {
		return w
	}
	return ls
}
