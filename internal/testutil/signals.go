// Package testutil holds signal generators, tolerance assertions and WAV
// helpers shared by the package tests.
package testutil

import (
	"math"
	"math/rand/v2"

	"github.com/cwbudde/algo-audiograph/dsp/buffer"
)

// Sine returns n samples of amp·sin(2πf·i/sampleRate).
func Sine(freqHz, sampleRate, amp float64, n int) []float64 {
	out := make([]float64, n)
	w := 2 * math.Pi * freqHz / sampleRate
	for i := range out {
		out[i] = amp * math.Sin(w*float64(i))
	}
	return out
}

// Noise returns n uniform samples in [-amp, amp). The same seed always
// yields the same sequence.
func Noise(seed uint64, amp float64, n int) []float64 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * (2*rng.Float64() - 1)
	}
	return out
}

// Impulse returns n samples with a single 1 at pos. A pos outside [0, n)
// yields silence.
func Impulse(n, pos int) []float64 {
	out := make([]float64, n)
	if pos >= 0 && pos < n {
		out[pos] = 1
	}
	return out
}

// Constant returns n copies of v.
func Constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// Block returns a render block holding one channel per argument. All
// channels must have the same length.
func Block(channels ...[]float64) *buffer.Block {
	b := buffer.NewBlock(len(channels), len(channels[0]))
	for ch, data := range channels {
		copy(b.Channel(ch), data)
	}
	return b
}
