package engine

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-audiograph/dsp/buffer"
	"github.com/cwbudde/algo-audiograph/dsp/iir"
	"github.com/cwbudde/algo-audiograph/render"
)

func defaultChannels() render.ChannelConfig {
	return render.ChannelConfig{Count: 2, Mode: render.CountMax, Interpretation: buffer.Speakers}
}

// DestinationNode is the final node of the graph. Its channel count is fixed
// by the context configuration.
type DestinationNode struct {
	*baseNode
}

// MaxChannelCount returns the channel count rendered to the sink.
func (d *DestinationNode) MaxChannelCount() int { return d.ctx.cfg.Channels }

// SetChannelCount only accepts the configured count.
func (d *DestinationNode) SetChannelCount(count int) error {
	if count != d.ctx.cfg.Channels {
		return fmt.Errorf("%w: destination has %d channels", ErrNotSupported, d.ctx.cfg.Channels)
	}
	return nil
}

// GainNode scales its input by an a-rate gain.
type GainNode struct {
	*baseNode
	gain *AudioParam
}

// CreateGain adds a gain node with unity gain.
func (c *Context) CreateGain() (*GainNode, error) {
	b, params, err := c.newNode(render.NodeDef{
		Kind:      "gain",
		Inputs:    1,
		Outputs:   1,
		Channels:  defaultChannels(),
		Params:    render.GainParams(),
		Processor: render.NewGain(),
	})
	if err != nil {
		return nil, err
	}
	return &GainNode{baseNode: b, gain: params[render.GainGain]}, nil
}

func (g *GainNode) Gain() *AudioParam { return g.gain }

// DelayNode delays its input by an a-rate delay time.
type DelayNode struct {
	*baseNode
	delayTime *AudioParam
	maxDelay  float64
}

// CreateDelay adds a delay node able to delay by up to maxDelay seconds,
// which must lie in (0, 180).
func (c *Context) CreateDelay(maxDelay float64) (*DelayNode, error) {
	proc, err := render.NewDelay(maxDelay, c.cfg.SampleRate, 2)
	if err != nil {
		return nil, constructionError("delay", err)
	}
	b, params, err := c.newNode(render.NodeDef{
		Kind:      "delay",
		Inputs:    1,
		Outputs:   1,
		Channels:  defaultChannels(),
		Params:    render.DelayParams(maxDelay),
		Processor: proc,
	})
	if err != nil {
		return nil, err
	}
	return &DelayNode{baseNode: b, delayTime: params[render.DelayTime], maxDelay: maxDelay}, nil
}

func (d *DelayNode) DelayTime() *AudioParam { return d.delayTime }

func (d *DelayNode) MaxDelayTime() float64 { return d.maxDelay }

// IIRFilterNode runs a general recursive filter.
type IIRFilterNode struct {
	*baseNode
	coeffs iir.Coefficients
}

// CreateIIRFilter adds a filter with the given feedforward (b) and feedback
// (a) coefficients. Both need 1 to 20 values; an all-zero list is
// ErrInvalidState, a missing or over-long one ErrNotSupported.
func (c *Context) CreateIIRFilter(feedforward, feedback []float64) (*IIRFilterNode, error) {
	coeffs, err := iir.NewCoefficients(feedforward, feedback)
	if err != nil {
		return nil, constructionError("iir filter", err)
	}
	b, _, err := c.newNode(render.NodeDef{
		Kind:      "iir filter",
		Inputs:    1,
		Outputs:   1,
		Channels:  defaultChannels(),
		Processor: render.NewIIRFilter(coeffs, 2),
	})
	if err != nil {
		return nil, err
	}
	return &IIRFilterNode{baseNode: b, coeffs: coeffs}, nil
}

// GetFrequencyResponse writes the magnitude and phase of the filter at each
// frequency in Hz. All three slices must have the same length. Frequencies
// outside [0, Nyquist] yield NaN.
func (f *IIRFilterNode) GetFrequencyResponse(freqHz, mag, phase []float64) error {
	if len(mag) != len(freqHz) || len(phase) != len(freqHz) {
		return fmt.Errorf("%w: %d frequencies, %d magnitudes, %d phases",
			ErrInvalidAccess, len(freqHz), len(mag), len(phase))
	}
	sr := f.ctx.cfg.SampleRate
	f.coeffs.FrequencyResponse(freqHz, mag, phase, sr)
	for i, hz := range freqHz {
		if hz < 0 || hz > sr/2 || math.IsNaN(hz) {
			mag[i], phase[i] = math.NaN(), math.NaN()
		}
	}
	return nil
}

// AnalyserNode passes audio through and exposes its recent waveform and
// spectrum.
type AnalyserNode struct {
	*baseNode
	analyser *render.Analyser
}

// CreateAnalyser adds an analyser with the default FFT size.
func (c *Context) CreateAnalyser() (*AnalyserNode, error) {
	return c.CreateAnalyserWithFFTSize(render.DefaultFFTSize)
}

// CreateAnalyserWithFFTSize adds an analyser with a power-of-two FFT size in
// [32, 32768].
func (c *Context) CreateAnalyserWithFFTSize(fftSize int) (*AnalyserNode, error) {
	a, err := render.NewAnalyser(fftSize)
	if err != nil {
		return nil, constructionError("analyser", err)
	}
	b, _, err := c.newNode(render.NodeDef{
		Kind:      "analyser",
		Inputs:    1,
		Outputs:   1,
		Channels:  defaultChannels(),
		Processor: a,
	})
	if err != nil {
		return nil, err
	}
	return &AnalyserNode{baseNode: b, analyser: a}, nil
}

func (a *AnalyserNode) FFTSize() int { return a.analyser.FFTSize() }

func (a *AnalyserNode) FrequencyBinCount() int { return a.analyser.FrequencyBinCount() }

func (a *AnalyserNode) SetSmoothingTimeConstant(v float64) error {
	return a.analyser.SetSmoothingTimeConstant(v)
}

func (a *AnalyserNode) SetDecibelRange(minDB, maxDB float64) error {
	return a.analyser.SetDecibelRange(minDB, maxDB)
}

func (a *AnalyserNode) GetFloatTimeDomainData(dst []float64) {
	a.analyser.GetFloatTimeDomainData(dst)
}

func (a *AnalyserNode) GetFloatFrequencyData(dst []float64) error {
	return a.analyser.GetFloatFrequencyData(dst)
}

func (a *AnalyserNode) GetByteFrequencyData(dst []byte) error {
	return a.analyser.GetByteFrequencyData(dst)
}

// DynamicsCompressorNode lowers the volume of loud passages.
type DynamicsCompressorNode struct {
	*baseNode
	comp      *render.Compressor
	threshold *AudioParam
	knee      *AudioParam
	ratio     *AudioParam
	attack    *AudioParam
	release   *AudioParam
}

// CreateDynamicsCompressor adds a compressor with a -24 dB threshold, a 30 dB
// knee, a 12:1 ratio, 3 ms attack and 250 ms release. Its channel count is
// clamped to 2.
func (c *Context) CreateDynamicsCompressor() (*DynamicsCompressorNode, error) {
	comp := render.NewCompressor()
	channels := defaultChannels()
	channels.Mode = render.CountClampedMax
	b, params, err := c.newNode(render.NodeDef{
		Kind:      "dynamics compressor",
		Inputs:    1,
		Outputs:   1,
		Channels:  channels,
		Params:    render.CompressorParams(),
		Processor: comp,
	})
	if err != nil {
		return nil, err
	}
	return &DynamicsCompressorNode{
		baseNode:  b,
		comp:      comp,
		threshold: params[render.CompressorThreshold],
		knee:      params[render.CompressorKnee],
		ratio:     params[render.CompressorRatio],
		attack:    params[render.CompressorAttack],
		release:   params[render.CompressorRelease],
	}, nil
}

// Threshold is the level in dB above which compression starts.
func (d *DynamicsCompressorNode) Threshold() *AudioParam { return d.threshold }

// Knee is the width in dB of the transition around the threshold.
func (d *DynamicsCompressorNode) Knee() *AudioParam { return d.knee }

func (d *DynamicsCompressorNode) Ratio() *AudioParam { return d.ratio }

// AttackTime is the time in seconds the level follower takes to close half
// the gap to a rising level.
func (d *DynamicsCompressorNode) AttackTime() *AudioParam { return d.attack }

// ReleaseTime is the half-life in seconds of the follower on a falling level.
func (d *DynamicsCompressorNode) ReleaseTime() *AudioParam { return d.release }

// Reduction returns the largest gain reduction in dB applied during the last
// rendered quantum.
func (d *DynamicsCompressorNode) Reduction() float64 { return d.comp.Reduction() }
