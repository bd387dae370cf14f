// Package delay provides a circular delay line with fractional reads.
package delay

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-audiograph/dsp/interp"
)

// guard is the number of extra slots kept beyond the maximum delay so the
// interpolation neighbourhood never wraps onto the write head.
const guard = 3

// Option configures a Line.
type Option func(*Line)

// WithMode selects the interpolation used by ReadFractional.
func WithMode(m interp.Mode) Option {
	return func(d *Line) { d.mode = m }
}

// Line is a circular delay line.
type Line struct {
	buffer   []float64
	writePos int
	mode     interp.Mode

	// Consecutive zero samples written; the line still rings until this
	// reaches len(buffer).
	silentRun int
}

// New returns a delay line able to delay by up to maxDelay samples.
func New(maxDelay int, opts ...Option) (*Line, error) {
	if maxDelay <= 0 {
		return nil, fmt.Errorf("delay: max delay must be > 0: %d", maxDelay)
	}
	d := &Line{buffer: make([]float64, maxDelay+guard+1), mode: interp.Hermite}
	d.silentRun = len(d.buffer)
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Len returns internal buffer size.
func (d *Line) Len() int {
	return len(d.buffer)
}

// MaxDelay returns the largest delay in samples ReadFractional honours.
func (d *Line) MaxDelay() int {
	return len(d.buffer) - guard - 1
}

// Write writes one sample.
func (d *Line) Write(sample float64) {
	d.buffer[d.writePos] = sample
	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
	if sample == 0 {
		if d.silentRun < len(d.buffer) {
			d.silentRun++
		}
	} else {
		d.silentRun = 0
	}
}

// Read returns the sample written delay writes before the most recent one.
// Read(0) is the most recent sample.
func (d *Line) Read(delay int) float64 {
	size := len(d.buffer)
	readPos := ((d.writePos-1-delay)%size + size) % size
	return d.buffer[readPos]
}

// ReadFractional reads delay samples back, interpolating between slots.
// delay is clamped to [0, MaxDelay()].
func (d *Line) ReadFractional(delay float64) float64 {
	delay = math.Min(math.Max(delay, 0), float64(d.MaxDelay()))

	p := int(math.Floor(delay))
	t := delay - float64(p)

	x0 := d.Read(p)
	x1 := d.Read(p + 1)
	if d.mode == interp.Linear {
		return interp.Linear2(t, x0, x1)
	}
	xm1 := d.Read(max(0, p-1))
	x2 := d.Read(p + 2)
	return interp.Hermite4(t, xm1, x0, x1, x2)
}

// Ringing reports whether any non-zero sample is still inside the line.
func (d *Line) Ringing() bool {
	return d.silentRun < len(d.buffer)
}

// Reset clears line state.
func (d *Line) Reset() {
	for i := range d.buffer {
		d.buffer[i] = 0
	}
	d.writePos = 0
	d.silentRun = len(d.buffer)
}
