package render

import (
	"fmt"
	"math"
	"strings"
)

// Waveform is an oscillator shape.
type Waveform uint8

const (
	Sine Waveform = iota
	Square
	Sawtooth
	Triangle
)

func (w Waveform) String() string {
	switch w {
	case Square:
		return "square"
	case Sawtooth:
		return "sawtooth"
	case Triangle:
		return "triangle"
	default:
		return "sine"
	}
}

// ParseWaveform parses the names produced by Waveform.String.
func ParseWaveform(s string) (Waveform, error) {
	switch strings.ToLower(s) {
	case "sine":
		return Sine, nil
	case "square":
		return Square, nil
	case "sawtooth":
		return Sawtooth, nil
	case "triangle":
		return Triangle, nil
	}
	return 0, fmt.Errorf("%w: waveform %q", ErrNotSupported, s)
}

// at evaluates one period at phase in [0, 1). Every shape starts at 0 or at
// its positive half and has unit peak amplitude.
func (w Waveform) at(phase float64) float64 {
	switch w {
	case Square:
		if phase < 0.5 {
			return 1
		}
		return -1
	case Sawtooth:
		if phase < 0.5 {
			return 2 * phase
		}
		return 2*phase - 2
	case Triangle:
		switch {
		case phase < 0.25:
			return 4 * phase
		case phase < 0.75:
			return 2 - 4*phase
		default:
			return 4*phase - 4
		}
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}
