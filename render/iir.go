package render

import (
	"github.com/cwbudde/algo-audiograph/dsp/buffer"
	"github.com/cwbudde/algo-audiograph/dsp/iir"
)

const iirSettleThreshold = 1e-12

// IIRFilter runs a general recursive filter with one state vector per
// channel. Channels that lose their input keep ringing out on silence.
type IIRFilter struct {
	filter *iir.Filter
}

// NewIIRFilter returns a filter processor with state preallocated for
// channels channels.
func NewIIRFilter(c iir.Coefficients, channels int) *IIRFilter {
	return &IIRFilter{filter: iir.New(c, channels)}
}

// Coefficients returns the normalized coefficients.
func (f *IIRFilter) Coefficients() iir.Coefficients { return f.filter.Coefficients() }

// Process implements Processor.
func (f *IIRFilter) Process(inputs, outputs []*buffer.Block, _ ParamValues, _ *Scope) bool {
	in, out := inputs[0], outputs[0]

	channels := in.Channels()
	for ch := channels; ch < f.filter.Channels(); ch++ {
		if !f.filter.ChannelSettled(ch, iirSettleThreshold) {
			channels = ch + 1
		}
	}
	out.SetChannels(channels)

	for ch := range channels {
		dst := out.Channel(ch)
		if ch < in.Channels() {
			f.filter.ProcessBlock(ch, dst, in.Channel(ch))
			continue
		}
		for i := range dst {
			dst[i] = f.filter.ProcessSample(ch, 0)
		}
	}
	return !f.filter.IsSettled(iirSettleThreshold)
}
