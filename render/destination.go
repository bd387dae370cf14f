package render

import "github.com/cwbudde/algo-audiograph/dsp/buffer"

// Destination copies its mixed input to the block handed to the sink.
type Destination struct{}

// DestinationDef returns the definition of the destination node for a
// channels-wide output.
func DestinationDef(channels int) NodeDef {
	return NodeDef{
		Kind:    "destination",
		Inputs:  1,
		Outputs: 1,
		Channels: ChannelConfig{
			Count:          channels,
			Mode:           CountExplicit,
			Interpretation: buffer.Speakers,
		},
		Processor: Destination{},
	}
}

// Process implements Processor.
func (Destination) Process(inputs, outputs []*buffer.Block, _ ParamValues, _ *Scope) bool {
	outputs[0].CopyFrom(inputs[0])
	return false
}
