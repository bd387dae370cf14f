package render

import "github.com/cwbudde/algo-audiograph/dsp/buffer"

// Processor is the processing contract every node kind implements.
//
// inputs holds one mixed block per input port, silent when unconnected.
// outputs holds one block per output port, pre-sized to the channel count of
// the first input (mono without inputs) and zeroed; a processor may change an
// output's channel count. params holds the parameter values computed for the
// quantum.
//
// Process reports whether the node has a tail: output worth keeping it alive
// for even with silent inputs (a ringing delay line, a playing source).
//
// Process runs on the render goroutine and must not block or allocate in the
// steady state.
type Processor interface {
	Process(inputs, outputs []*buffer.Block, params ParamValues, scope *Scope) (tail bool)
}

// scheduledSource is implemented by processors that accept Start and Stop.
type scheduledSource interface {
	start(when, offset float64, hasOffset bool, duration float64) error
	stop(when float64) error
}

type looper interface {
	setLoop(loop bool, start, end float64)
}

type bufferHolder interface {
	setBuffer(b *buffer.AudioBuffer)
}

type waveformer interface {
	setWaveform(w Waveform)
}
