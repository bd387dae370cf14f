package render

import (
	"math"

	"github.com/cwbudde/algo-audiograph/dsp/buffer"
)

// Oscillator parameter indices.
const (
	OscillatorFrequency = iota
	OscillatorDetune
)

// OscillatorParams returns the parameters of an oscillator at sampleRate.
func OscillatorParams(sampleRate float64) []ParamDescriptor {
	nyquist := sampleRate / 2
	return []ParamDescriptor{
		{Name: "frequency", Default: 440, Min: -nyquist, Max: nyquist, Rate: ARate},
		{Name: "detune", Default: 0, Min: -153600, Max: 153600, Rate: ARate},
	}
}

// Oscillator generates a periodic waveform between its start and stop times.
type Oscillator struct {
	sched    schedule
	waveform Waveform
	phase    float64
}

// NewOscillator returns an unscheduled oscillator.
func NewOscillator(w Waveform) *Oscillator {
	return &Oscillator{waveform: w}
}

func (o *Oscillator) start(when, _ float64, _ bool, _ float64) error {
	return o.sched.setStart(when)
}

func (o *Oscillator) stop(when float64) error { return o.sched.setStop(when) }

func (o *Oscillator) setWaveform(w Waveform) { o.waveform = w }

// Process implements Processor.
func (o *Oscillator) Process(_, outputs []*buffer.Block, params ParamValues, scope *Scope) bool {
	if !o.sched.pending() {
		return false
	}
	dst := outputs[0].Channel(0)
	for i := range dst {
		t := scope.FrameTime(i)
		if o.sched.waiting(t) {
			continue
		}
		if o.sched.expired(t) {
			o.sched.end(scope)
			break
		}
		f := params.At(OscillatorFrequency, i) * math.Exp2(params.At(OscillatorDetune, i)/1200)
		dst[i] = o.waveform.at(o.phase)
		o.phase += f / scope.SampleRate
		o.phase -= math.Floor(o.phase)
	}
	return o.sched.pending()
}
