package render

import (
	"fmt"
	"math"
	"math/bits"
	"sync"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-audiograph/dsp/buffer"
	"github.com/cwbudde/algo-audiograph/dsp/window"
)

// Analyser defaults and limits.
const (
	DefaultFFTSize     = 2048
	MinFFTSize         = 32
	MaxFFTSize         = 32768
	DefaultSmoothing   = 0.8
	DefaultMinDecibels = -100.0
	DefaultMaxDecibels = -30.0
)

// Analyser passes audio through unchanged and keeps the most recent fftSize
// mono-mixed samples for inspection from control goroutines.
//
// The render goroutine publishes a snapshot each quantum only when it can take
// the snapshot lock without waiting; a quantum may be skipped while a reader
// holds it. Spectrum computation happens on the reader's goroutine.
type Analyser struct {
	fftSize int

	ring  []float64
	write int

	mu       sync.Mutex
	snapshot []float64

	ctl       sync.Mutex
	plan      *algofft.Plan[complex128]
	window    []float64
	smoothing float64
	minDB     float64
	maxDB     float64
	smoothed  []float64
	work      []float64
	timeBuf   []complex128
	spectrum  []complex128
	re, im    []float64
	mag       []float64
}

// NewAnalyser returns an analyser with a power-of-two fftSize in
// [MinFFTSize, MaxFFTSize].
func NewAnalyser(fftSize int) (*Analyser, error) {
	if fftSize < MinFFTSize || fftSize > MaxFFTSize || bits.OnesCount(uint(fftSize)) != 1 {
		return nil, fmt.Errorf("%w: fft size %d", ErrNotSupported, fftSize)
	}
	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("analyser fft plan: %w", err)
	}
	bins := fftSize / 2
	return &Analyser{
		fftSize:   fftSize,
		ring:      make([]float64, fftSize),
		snapshot:  make([]float64, fftSize),
		plan:      plan,
		window:    window.Generate(window.TypeBlackman, fftSize, window.WithPeriodic()),
		smoothing: DefaultSmoothing,
		minDB:     DefaultMinDecibels,
		maxDB:     DefaultMaxDecibels,
		smoothed:  make([]float64, bins),
		work:      make([]float64, fftSize),
		timeBuf:   make([]complex128, fftSize),
		spectrum:  make([]complex128, fftSize),
		re:        make([]float64, bins),
		im:        make([]float64, bins),
		mag:       make([]float64, bins),
	}, nil
}

// FFTSize returns the analysis window length.
func (a *Analyser) FFTSize() int { return a.fftSize }

// FrequencyBinCount returns the number of spectrum bins, FFTSize/2.
func (a *Analyser) FrequencyBinCount() int { return a.fftSize / 2 }

// Process implements Processor.
func (a *Analyser) Process(inputs, outputs []*buffer.Block, _ ParamValues, _ *Scope) bool {
	in := inputs[0]
	outputs[0].CopyFrom(in)

	scale := 1 / float64(in.Channels())
	for i := range in.Frames() {
		sum := 0.0
		for ch := range in.Channels() {
			sum += in.Channel(ch)[i]
		}
		a.ring[a.write] = sum * scale
		a.write++
		if a.write == a.fftSize {
			a.write = 0
		}
	}

	if a.mu.TryLock() {
		n := copy(a.snapshot, a.ring[a.write:])
		copy(a.snapshot[n:], a.ring[:a.write])
		a.mu.Unlock()
	}
	return false
}

// SetSmoothingTimeConstant sets the spectrum averaging constant in [0, 1].
func (a *Analyser) SetSmoothingTimeConstant(v float64) error {
	if v < 0 || v > 1 || math.IsNaN(v) {
		return fmt.Errorf("%w: smoothing time constant %v", ErrNotSupported, v)
	}
	a.ctl.Lock()
	a.smoothing = v
	a.ctl.Unlock()
	return nil
}

// SetDecibelRange sets the range mapped onto byte spectrum data.
func (a *Analyser) SetDecibelRange(minDB, maxDB float64) error {
	if !(minDB < maxDB) {
		return fmt.Errorf("%w: decibel range [%v, %v]", ErrNotSupported, minDB, maxDB)
	}
	a.ctl.Lock()
	a.minDB, a.maxDB = minDB, maxDB
	a.ctl.Unlock()
	return nil
}

// GetFloatTimeDomainData copies the oldest min(len(dst), FFTSize) samples of
// the current window into dst.
func (a *Analyser) GetFloatTimeDomainData(dst []float64) {
	a.mu.Lock()
	copy(dst, a.snapshot)
	a.mu.Unlock()
}

// GetFloatFrequencyData writes the smoothed magnitude spectrum in decibels to
// dst, one value per bin up to len(dst).
func (a *Analyser) GetFloatFrequencyData(dst []float64) error {
	a.ctl.Lock()
	defer a.ctl.Unlock()
	if err := a.analyse(); err != nil {
		return err
	}
	n := min(len(dst), len(a.smoothed))
	for i := range n {
		dst[i] = 20 * math.Log10(a.smoothed[i])
	}
	return nil
}

// GetByteFrequencyData writes the smoothed spectrum scaled from the decibel
// range onto 0..255.
func (a *Analyser) GetByteFrequencyData(dst []byte) error {
	a.ctl.Lock()
	defer a.ctl.Unlock()
	if err := a.analyse(); err != nil {
		return err
	}
	span := a.maxDB - a.minDB
	n := min(len(dst), len(a.smoothed))
	for i := range n {
		db := 20 * math.Log10(a.smoothed[i])
		v := 255 * (db - a.minDB) / span
		dst[i] = byte(math.Max(0, math.Min(255, v)))
	}
	return nil
}

// analyse refreshes the smoothed spectrum. Callers hold ctl.
func (a *Analyser) analyse() error {
	a.mu.Lock()
	copy(a.work, a.snapshot)
	a.mu.Unlock()

	if err := window.ApplyCoefficients(a.work, a.work, a.window); err != nil {
		return err
	}
	for i, v := range a.work {
		a.timeBuf[i] = complex(v, 0)
	}
	if err := a.plan.Forward(a.spectrum, a.timeBuf); err != nil {
		return fmt.Errorf("analyser fft: %w", err)
	}
	for i := range a.re {
		a.re[i] = real(a.spectrum[i])
		a.im[i] = imag(a.spectrum[i])
	}
	vecmath.Magnitude(a.mag, a.re, a.im)

	norm := 1 / float64(a.fftSize)
	for i, m := range a.mag {
		a.smoothed[i] = a.smoothing*a.smoothed[i] + (1-a.smoothing)*m*norm
	}
	return nil
}
