package buffer

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-audiograph/dsp/interp"
)

// ErrInvalidAudioBuffer is returned for buffers with no channels, ragged
// channels, or a non-positive sample rate.
var ErrInvalidAudioBuffer = errors.New("buffer: invalid audio buffer")

// AudioBuffer is decoded audio held in memory: planar float64 samples at a
// given sample rate.
//
// An AudioBuffer is treated as immutable once handed to the engine and is
// shared by reference between the control and render goroutines.
type AudioBuffer struct {
	channels   [][]float64
	sampleRate float64
}

// NewAudioBuffer returns a silent AudioBuffer.
func NewAudioBuffer(channels, length int, sampleRate float64) (*AudioBuffer, error) {
	if channels < 1 || length < 0 {
		return nil, fmt.Errorf("%w: %d channels, %d frames", ErrInvalidAudioBuffer, channels, length)
	}
	data := make([][]float64, channels)
	for i := range data {
		data[i] = make([]float64, length)
	}
	return FromChannels(data, sampleRate)
}

// FromChannels wraps planar channel data without copying. All channels must
// have the same length.
func FromChannels(data [][]float64, sampleRate float64) (*AudioBuffer, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no channels", ErrInvalidAudioBuffer)
	}
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("%w: sample rate %f", ErrInvalidAudioBuffer, sampleRate)
	}
	for i, ch := range data {
		if len(ch) != len(data[0]) {
			return nil, fmt.Errorf("%w: channel %d has %d frames, want %d",
				ErrInvalidAudioBuffer, i, len(ch), len(data[0]))
		}
	}
	return &AudioBuffer{channels: data, sampleRate: sampleRate}, nil
}

// FromInterleaved de-interleaves float32 samples, the layout produced by most
// decoders. Trailing samples that do not fill a frame are dropped.
func FromInterleaved(samples []float32, channels int, sampleRate float64) (*AudioBuffer, error) {
	if channels < 1 {
		return nil, fmt.Errorf("%w: %d channels", ErrInvalidAudioBuffer, channels)
	}
	frames := len(samples) / channels
	data := make([][]float64, channels)
	for ch := range data {
		data[ch] = make([]float64, frames)
	}
	for i := range frames {
		for ch := range channels {
			data[ch][i] = float64(samples[i*channels+ch])
		}
	}
	return FromChannels(data, sampleRate)
}

// NumberOfChannels returns the channel count.
func (a *AudioBuffer) NumberOfChannels() int { return len(a.channels) }

// Length returns the number of frames per channel.
func (a *AudioBuffer) Length() int { return len(a.channels[0]) }

// SampleRate returns the sample rate in Hz.
func (a *AudioBuffer) SampleRate() float64 { return a.sampleRate }

// Duration returns the length in seconds.
func (a *AudioBuffer) Duration() float64 {
	return float64(a.Length()) / a.sampleRate
}

// Channel returns the samples of channel ch. Callers must not modify them.
func (a *AudioBuffer) Channel(ch int) []float64 { return a.channels[ch] }

// Resample returns a copy converted to sampleRate by linear interpolation, or
// a itself when the rates already match.
func (a *AudioBuffer) Resample(sampleRate float64) (*AudioBuffer, error) {
	if sampleRate == a.sampleRate {
		return a, nil
	}
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("%w: sample rate %f", ErrInvalidAudioBuffer, sampleRate)
	}
	ratio := a.sampleRate / sampleRate
	n := int(math.Floor(float64(a.Length()) / ratio))
	out := make([][]float64, len(a.channels))
	for ch, src := range a.channels {
		dst := make([]float64, n)
		for i := range dst {
			dst[i] = interp.At(src, float64(i)*ratio, -1)
		}
		out[ch] = dst
	}
	return FromChannels(out, sampleRate)
}
