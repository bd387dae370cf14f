package render

import "github.com/cwbudde/algo-audiograph/dsp/buffer"

// ConstantSourceOffset is the index of the constant source's offset parameter.
const ConstantSourceOffset = 0

// ConstantSourceParams returns the parameters of a constant source.
func ConstantSourceParams() []ParamDescriptor {
	return []ParamDescriptor{
		{Name: "offset", Default: 1, Min: -MaxParamValue, Max: MaxParamValue, Rate: ARate},
	}
}

// ConstantSource outputs its offset parameter between its start and stop
// times.
type ConstantSource struct {
	sched schedule
}

// NewConstantSource returns an unscheduled constant source.
func NewConstantSource() *ConstantSource { return &ConstantSource{} }

func (c *ConstantSource) start(when, _ float64, _ bool, _ float64) error {
	return c.sched.setStart(when)
}

func (c *ConstantSource) stop(when float64) error { return c.sched.setStop(when) }

// Process implements Processor.
func (c *ConstantSource) Process(_, outputs []*buffer.Block, params ParamValues, scope *Scope) bool {
	if !c.sched.pending() {
		return false
	}
	dst := outputs[0].Channel(0)
	for i := range dst {
		t := scope.FrameTime(i)
		if c.sched.waiting(t) {
			continue
		}
		if c.sched.expired(t) {
			c.sched.end(scope)
			break
		}
		dst[i] = params.At(ConstantSourceOffset, i)
	}
	return c.sched.pending()
}
