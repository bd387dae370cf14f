package render

import (
	"math"
	"sync/atomic"

	"github.com/cwbudde/algo-audiograph/dsp/buffer"
)

// Dynamics compressor parameter indices.
const (
	CompressorThreshold = iota
	CompressorKnee
	CompressorRatio
	CompressorAttack
	CompressorRelease
	compressorParamCount
)

// CompressorParams returns the parameters of a dynamics compressor: threshold
// and knee in dB, ratio, attack and release in seconds. All are k-rate.
func CompressorParams() []ParamDescriptor {
	return []ParamDescriptor{
		{Name: "threshold", Default: -24, Min: -100, Max: 0, Rate: KRate},
		{Name: "knee", Default: 30, Min: 0, Max: 40, Rate: KRate},
		{Name: "ratio", Default: 12, Min: 1, Max: 20, Rate: KRate},
		{Name: "attack", Default: 0.003, Min: 0, Max: 1, Rate: KRate},
		{Name: "release", Default: 0.25, Min: 0, Max: 1, Rate: KRate},
	}
}

const (
	// log2Of10Div20 converts decibels to the log2 domain.
	log2Of10Div20 = 0.166096404744

	// makeupExponent is the share of full-scale reduction restored as makeup
	// gain.
	makeupExponent = 0.6
)

// Compressor is a soft-knee peak compressor. One envelope follows the loudest
// channel and its gain is applied to all channels.
//
// The gain computer works in the log2 domain: overshoot above the threshold
// is reduced by 1-1/ratio, with a quadratic transition across the knee. A
// knee of 0 dB is a hard knee. Makeup gain restores 60% (in dB) of the
// reduction a full-scale signal receives. Coefficients are recomputed only
// when a parameter or the sample rate changes.
type Compressor struct {
	envelope float64

	settings   [compressorParamCount]float64
	sampleRate float64

	thresholdLog2 float64
	kneeLog2      float64
	invKneeLog2   float64
	factor        float64
	attackCoeff   float64
	releaseCoeff  float64
	makeup        float64

	reduction atomic.Uint64
}

// NewCompressor returns a compressor with an empty envelope.
func NewCompressor() *Compressor { return &Compressor{} }

// Reduction returns the largest gain reduction of the last rendered quantum
// in dB, zero or negative. Safe for concurrent use.
func (c *Compressor) Reduction() float64 {
	return math.Float64frombits(c.reduction.Load())
}

// Process implements Processor.
func (c *Compressor) Process(inputs, outputs []*buffer.Block, params ParamValues, scope *Scope) bool {
	in, out := inputs[0], outputs[0]
	c.configure(params, scope.SampleRate)

	minGain := 1.0
	for i := range in.Frames() {
		level := 0.0
		for ch := range in.Channels() {
			level = math.Max(level, math.Abs(in.Channel(ch)[i]))
		}
		if level > c.envelope {
			c.envelope += (level - c.envelope) * c.attackCoeff
		} else {
			c.envelope = level + (c.envelope-level)*c.releaseCoeff
		}

		g := c.gainFor(c.envelope)
		minGain = math.Min(minGain, g)
		g *= c.makeup
		for ch := range in.Channels() {
			out.Channel(ch)[i] = in.Channel(ch)[i] * g
		}
	}
	c.reduction.Store(math.Float64bits(20 * math.Log10(minGain)))
	return false
}

func (c *Compressor) configure(params ParamValues, sampleRate float64) {
	var s [compressorParamCount]float64
	for i := range s {
		s[i] = params.At(i, 0)
	}
	if s == c.settings && sampleRate == c.sampleRate {
		return
	}
	c.settings, c.sampleRate = s, sampleRate

	c.thresholdLog2 = s[CompressorThreshold] * log2Of10Div20
	c.kneeLog2 = s[CompressorKnee] * log2Of10Div20
	c.invKneeLog2 = 0
	if c.kneeLog2 > 0 {
		c.invKneeLog2 = 1 / c.kneeLog2
	}
	c.factor = 1 - 1/s[CompressorRatio]

	// A zero time gives a coefficient of 1 (attack) or 0 (release), which
	// makes the follower track the level instantly.
	c.attackCoeff = 1 - math.Exp(-math.Ln2/(s[CompressorAttack]*sampleRate))
	c.releaseCoeff = math.Exp(-math.Ln2 / (s[CompressorRelease] * sampleRate))

	c.makeup = 1 / math.Pow(c.gainFor(1), makeupExponent)
}

// gainFor returns the linear gain the compressor applies at level.
func (c *Compressor) gainFor(level float64) float64 {
	if level <= 0 || c.factor == 0 {
		return 1
	}
	overshoot := mathLog2(level) - c.thresholdLog2

	if c.kneeLog2 <= 0 {
		if overshoot <= 0 {
			return 1
		}
		return mathPower2(-overshoot * c.factor)
	}

	half := c.kneeLog2 * 0.5
	switch {
	case overshoot < -half:
		return 1
	case overshoot <= half:
		x := overshoot + half
		overshoot = x * x * 0.5 * c.invKneeLog2
	}
	return mathPower2(-overshoot * c.factor)
}
