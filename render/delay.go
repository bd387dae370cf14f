package render

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-audiograph/dsp/buffer"
	"github.com/cwbudde/algo-audiograph/dsp/delay"
)

// MaxDelayTime is the exclusive upper bound of a delay node's maximum delay
// in seconds.
const MaxDelayTime = 180.0

// DelayTime is the index of the delay node's delayTime parameter.
const DelayTime = 0

// DelayParams returns the parameters of a delay node with the given maximum
// delay in seconds.
func DelayParams(maxDelay float64) []ParamDescriptor {
	return []ParamDescriptor{
		{Name: "delayTime", Default: 0, Min: 0, Max: maxDelay, Rate: ARate},
	}
}

// Delay delays each input channel by the a-rate delayTime parameter. It keeps
// reporting a tail while any line still holds non-zero samples.
type Delay struct {
	lines    []*delay.Line
	maxDelay int
}

// NewDelay returns a delay processor able to delay by maxDelay seconds,
// preallocated for channels channels.
func NewDelay(maxDelay, sampleRate float64, channels int) (*Delay, error) {
	if !(maxDelay > 0 && maxDelay < MaxDelayTime) {
		return nil, fmt.Errorf("%w: max delay %v outside (0, %v)", ErrNotSupported, maxDelay, MaxDelayTime)
	}
	d := &Delay{maxDelay: int(math.Ceil(maxDelay*sampleRate)) + 1}
	if err := d.grow(max(channels, 1)); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Delay) grow(channels int) error {
	for len(d.lines) < channels {
		l, err := delay.New(d.maxDelay)
		if err != nil {
			return err
		}
		d.lines = append(d.lines, l)
	}
	return nil
}

// Process implements Processor.
func (d *Delay) Process(inputs, outputs []*buffer.Block, params ParamValues, scope *Scope) bool {
	in, out := inputs[0], outputs[0]
	if in.Channels() > len(d.lines) {
		if err := d.grow(in.Channels()); err != nil {
			panic(err)
		}
	}

	channels := in.Channels()
	for ch := channels; ch < len(d.lines); ch++ {
		if d.lines[ch].Ringing() {
			channels = ch + 1
		}
	}
	out.SetChannels(channels)

	ringing := false
	for ch := range channels {
		line := d.lines[ch]
		dst := out.Channel(ch)
		var src []float64
		if ch < in.Channels() {
			src = in.Channel(ch)
		}
		for i := range dst {
			x := 0.0
			if src != nil {
				x = src[i]
			}
			line.Write(x)
			dst[i] = line.ReadFractional(params.At(DelayTime, i) * scope.SampleRate)
		}
		ringing = ringing || line.Ringing()
	}
	return ringing
}
