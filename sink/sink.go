package sink

import (
	"context"
	"math"
	"time"

	"github.com/cwbudde/algo-audiograph/dsp/buffer"
)

// QuantumSource produces audio one render quantum at a time.
// *engine.Context implements it.
type QuantumSource interface {
	// RenderQuantum renders the next quantum. The block stays valid until
	// the next call.
	RenderQuantum() *buffer.Block
	SampleRate() float64
	QuantumSize() int
	Channels() int
}

// LatencyReporter receives the output latency a real-time sink achieves.
type LatencyReporter interface {
	SetOutputLatency(d time.Duration)
}

// Sink consumes a QuantumSource until it is done or ctx is cancelled.
type Sink interface {
	Run(ctx context.Context, src QuantumSource) error
}

// QuantumDuration returns the wall time one quantum of src covers.
func QuantumDuration(src QuantumSource) time.Duration {
	return framesDuration(src.QuantumSize(), src.SampleRate())
}

func framesDuration(frames int, sampleRate float64) time.Duration {
	return time.Duration(math.Round(float64(frames) / sampleRate * float64(time.Second)))
}

// Interleave writes the first frames frames of b into dst as interleaved
// float32 samples with channels channels. Channels missing from b are
// silent. dst is grown as needed and returned.
func Interleave(dst []float32, b *buffer.Block, channels, frames int) []float32 {
	n := frames * channels
	if cap(dst) < n {
		dst = make([]float32, n)
	}
	dst = dst[:n]
	have := min(b.Channels(), channels)
	for ch := range channels {
		if ch >= have {
			for i := range frames {
				dst[i*channels+ch] = 0
			}
			continue
		}
		src := b.Channel(ch)
		for i := range frames {
			dst[i*channels+ch] = float32(src[i])
		}
	}
	return dst
}
