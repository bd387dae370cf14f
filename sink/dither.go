package sink

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// quantizer converts float samples to integers of a fixed bit depth,
// optionally adding triangular (TPDF) dither of one LSB peak before
// rounding.
type quantizer struct {
	scale   float64
	lo, hi  int
	dither  *vecmath.DitherState
	scratch []float64
}

func newQuantizer(bitDepth int, dither bool, seed int64) *quantizer {
	full := math.Exp2(float64(bitDepth - 1))
	q := &quantizer{scale: full, lo: -int(full), hi: int(full) - 1}
	if dither {
		q.dither = vecmath.NewDitherState(seed)
	}
	return q
}

// quantize writes src to dst[0], dst[stride], ... A nil src is silence.
func (q *quantizer) quantize(dst []int, stride int, src []float64, frames int) {
	if cap(q.scratch) < frames {
		q.scratch = make([]float64, frames)
	}
	s := q.scratch[:frames]
	if src == nil {
		clear(s)
	} else {
		vecmath.ScaleBlock(s, src[:frames], q.scale)
	}
	if q.dither != nil {
		vecmath.AddDitherTPDF(s, 1, q.dither)
	}
	for i, v := range s {
		dst[i*stride] = q.round(v)
	}
}

func (q *quantizer) round(v float64) int {
	if math.IsNaN(v) {
		return 0
	}
	r := math.Round(v)
	if r < float64(q.lo) {
		return q.lo
	}
	if r > float64(q.hi) {
		return q.hi
	}
	return int(r)
}
