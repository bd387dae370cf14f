package buffer

import (
	"fmt"
	"strings"

	"github.com/cwbudde/algo-vecmath"
)

// Interpretation selects how channel layouts are converted when an input's
// channel count differs from the count a node computes for it.
type Interpretation int

const (
	// Speakers up-mixes by repeating source channels and down-mixes by
	// averaging the source channels that fold onto each destination channel.
	Speakers Interpretation = iota
	// Discrete fills missing channels with silence and drops extra ones.
	Discrete
)

// String returns the lowercase name used in configuration files.
func (i Interpretation) String() string {
	if i == Discrete {
		return "discrete"
	}
	return "speakers"
}

// ParseInterpretation parses the names produced by Interpretation.String.
func ParseInterpretation(s string) (Interpretation, error) {
	switch strings.ToLower(s) {
	case "speakers":
		return Speakers, nil
	case "discrete":
		return Discrete, nil
	}
	return 0, fmt.Errorf("buffer: unknown channel interpretation %q", s)
}

// MixInto accumulates src into dst, converting src's channel layout to dst's
// active channel count according to interp.
//
// With Speakers, destination channel j receives the mean of every source
// channel k with k mod dst == j when down-mixing, and source channel
// j mod src when up-mixing; a mono source is therefore copied to every
// destination channel.
func MixInto(dst, src *Block, interp Interpretation) {
	dc, sc := dst.channels, src.channels
	switch {
	case dc == sc:
		dst.Add(src)
	case interp == Discrete:
		dst.Add(src)
	case sc < dc:
		for ch := 0; ch < dc; ch++ {
			vecmath.AddBlockInPlace(dst.data[ch], src.data[ch%sc])
		}
	default:
		for ch := 0; ch < dc; ch++ {
			d := dst.data[ch]
			folded := 0
			for k := ch; k < sc; k += dc {
				folded++
			}
			scale := 1 / float64(folded)
			for k := ch; k < sc; k += dc {
				for i, v := range src.data[k] {
					d[i] += v * scale
				}
			}
		}
	}
}
