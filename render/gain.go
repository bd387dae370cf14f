package render

import (
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-audiograph/dsp/buffer"
)

// GainGain is the index of the gain node's gain parameter.
const GainGain = 0

// GainParams returns the parameters of a gain node.
func GainParams() []ParamDescriptor {
	return []ParamDescriptor{
		{Name: "gain", Default: 1, Min: -MaxParamValue, Max: MaxParamValue, Rate: ARate},
	}
}

// Gain multiplies its input by the a-rate gain parameter.
type Gain struct{}

// NewGain returns a gain processor.
func NewGain() *Gain { return &Gain{} }

// Process implements Processor.
func (*Gain) Process(inputs, outputs []*buffer.Block, params ParamValues, _ *Scope) bool {
	in, out := inputs[0], outputs[0]
	gain := params[GainGain]
	for ch := range in.Channels() {
		if len(gain) == 1 {
			vecmath.ScaleBlock(out.Channel(ch), in.Channel(ch), gain[0])
			continue
		}
		vecmath.MulBlock(out.Channel(ch), in.Channel(ch), gain)
	}
	return false
}
