package iir

import (
	"errors"
	"fmt"
	"math"
	"math/cmplx"
)

// MaxCoefficients is the largest accepted length of either coefficient list.
const MaxCoefficients = 20

var (
	// ErrNotSupported reports an empty or over-long coefficient list.
	ErrNotSupported = errors.New("iir: not supported")
	// ErrInvalidState reports a coefficient list that is entirely zero.
	ErrInvalidState = errors.New("iir: invalid state")
)

// Coefficients holds normalized, equal-length coefficient lists.
// Feedback[0] is always exactly 1.
type Coefficients struct {
	Feedforward []float64
	Feedback    []float64
}

// NewCoefficients validates and normalizes a coefficient pair.
//
// Both lists must be non-empty, at most [MaxCoefficients] long and contain a
// non-zero value. The shorter list is zero-padded and every coefficient is
// divided by feedback[0].
func NewCoefficients(feedforward, feedback []float64) (Coefficients, error) {
	if err := validate("feedforward", feedforward); err != nil {
		return Coefficients{}, err
	}
	if err := validate("feedback", feedback); err != nil {
		return Coefficients{}, err
	}
	if feedback[0] == 0 {
		return Coefficients{}, fmt.Errorf("%w: feedback[0] must be non-zero", ErrInvalidState)
	}

	n := max(len(feedforward), len(feedback))
	ff := make([]float64, n)
	fb := make([]float64, n)
	copy(ff, feedforward)
	copy(fb, feedback)

	a0 := fb[0]
	for i := range n {
		ff[i] /= a0
		fb[i] /= a0
	}
	fb[0] = 1

	return Coefficients{Feedforward: ff, Feedback: fb}, nil
}

func validate(name string, coeffs []float64) error {
	if len(coeffs) == 0 {
		return fmt.Errorf("%w: %s coefficients are empty", ErrNotSupported, name)
	}
	if len(coeffs) > MaxCoefficients {
		return fmt.Errorf("%w: %d %s coefficients exceed maximum of %d",
			ErrNotSupported, len(coeffs), name, MaxCoefficients)
	}
	for _, c := range coeffs {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return fmt.Errorf("%w: %s coefficient %v is not finite", ErrNotSupported, name, c)
		}
	}
	for _, c := range coeffs {
		if c != 0 {
			return nil
		}
	}
	return fmt.Errorf("%w: %s coefficients are all zero", ErrInvalidState, name)
}

// Order returns the common coefficient list length.
func (c Coefficients) Order() int {
	return len(c.Feedback)
}

// Response computes H(e^jw) at freqHz for the given sample rate.
func (c Coefficients) Response(freqHz, sampleRate float64) complex128 {
	w := -2 * math.Pi * freqHz / sampleRate
	var num, den complex128
	for k := range c.Feedback {
		z := cmplx.Rect(1, w*float64(k))
		num += complex(c.Feedforward[k], 0) * z
		den += complex(c.Feedback[k], 0) * z
	}
	return num / den
}

// FrequencyResponse fills mag and phase with |H(f)| and arg(H(f)) for each
// frequency in freqHz. Only min(len(freqHz), len(mag), len(phase)) entries are
// written.
func (c Coefficients) FrequencyResponse(freqHz, mag, phase []float64, sampleRate float64) {
	n := min(len(freqHz), len(mag), len(phase))
	for i := range n {
		h := c.Response(freqHz[i], sampleRate)
		mag[i] = cmplx.Abs(h)
		phase[i] = cmplx.Phase(h)
	}
}

// Filter applies normalized coefficients with independent state per channel.
type Filter struct {
	coeffs Coefficients
	state  [][]float64
}

// New returns a Filter for the given coefficients with state for channels
// channels.
func New(c Coefficients, channels int) *Filter {
	f := &Filter{coeffs: c}
	f.ensureChannels(max(channels, 1))
	return f
}

// Coefficients returns the normalized coefficients.
func (f *Filter) Coefficients() Coefficients { return f.coeffs }

// Channels returns the number of channels with state.
func (f *Filter) Channels() int { return len(f.state) }

// ensureChannels grows the per-channel state. Growing allocates.
func (f *Filter) ensureChannels(n int) {
	for len(f.state) < n {
		f.state = append(f.state, make([]float64, max(f.coeffs.Order()-1, 0)))
	}
}

// ProcessSample filters one sample on channel ch.
//
//	y        = ff[0]*x + s[0]
//	s[i-1]   = ff[i]*x - fb[i]*y + s[i]   (s[order-1] taken as 0)
func (f *Filter) ProcessSample(ch int, x float64) float64 {
	s := f.state[ch]
	ff, fb := f.coeffs.Feedforward, f.coeffs.Feedback
	if len(s) == 0 {
		return ff[0] * x
	}
	y := ff[0]*x + s[0]
	last := len(s) - 1
	for i := 0; i < last; i++ {
		s[i] = ff[i+1]*x - fb[i+1]*y + s[i+1]
	}
	s[last] = ff[last+1]*x - fb[last+1]*y
	return y
}

// ProcessBlock filters src into dst on channel ch. Both slices must have the
// same length; they may alias.
func (f *Filter) ProcessBlock(ch int, dst, src []float64) {
	f.ensureChannels(ch + 1)
	for i, x := range src {
		dst[i] = f.ProcessSample(ch, x)
	}
}

// Reset clears every channel's state.
func (f *Filter) Reset() {
	for _, s := range f.state {
		for i := range s {
			s[i] = 0
		}
	}
}

// IsSettled reports whether every state accumulator is below eps in
// magnitude.
func (f *Filter) IsSettled(eps float64) bool {
	for ch := range f.state {
		if !f.ChannelSettled(ch, eps) {
			return false
		}
	}
	return true
}

// ChannelSettled reports whether channel ch's state is below eps in
// magnitude.
func (f *Filter) ChannelSettled(ch int, eps float64) bool {
	for _, v := range f.state[ch] {
		if math.Abs(v) > eps {
			return false
		}
	}
	return true
}

// ImpulseResponse returns n samples of the response to a unit impulse,
// computed on a scratch filter so f's state is untouched.
func (c Coefficients) ImpulseResponse(n int) []float64 {
	if n <= 0 {
		return nil
	}
	scratch := New(c, 1)
	ir := make([]float64, n)
	ir[0] = scratch.ProcessSample(0, 1)
	for i := 1; i < n; i++ {
		ir[i] = scratch.ProcessSample(0, 0)
	}
	return ir
}
