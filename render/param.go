package render

import (
	"math"

	"github.com/cwbudde/algo-audiograph/dsp/automation"
)

// MaxParamValue is the largest nominal range bound of an unbounded parameter.
const MaxParamValue = math.MaxFloat32

// Rate is the evaluation granularity of a parameter.
type Rate uint8

const (
	// ARate parameters are evaluated once per frame.
	ARate Rate = iota
	// KRate parameters are evaluated once per quantum, at its first frame.
	KRate
)

func (r Rate) String() string {
	if r == KRate {
		return "k-rate"
	}
	return "a-rate"
}

// ParamDescriptor declares one automatable parameter of a node kind.
type ParamDescriptor struct {
	Name    string
	Default float64
	Min     float64
	Max     float64
	Rate    Rate
}

// NewTimeline returns an empty automation timeline for the parameter.
func (d ParamDescriptor) NewTimeline() *automation.Timeline {
	return automation.New(d.Default, d.Min, d.Max)
}

// ParamValues holds a node's computed parameter values for one quantum, in
// declaration order. A-rate entries have one value per frame; k-rate entries
// have a single value.
type ParamValues [][]float64

// At returns the value of parameter param at frame.
func (p ParamValues) At(param, frame int) float64 {
	v := p[param]
	if len(v) == 1 {
		return v[0]
	}
	return v[frame]
}

type param struct {
	desc     ParamDescriptor
	timeline *automation.Timeline
}
