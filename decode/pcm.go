package decode

import (
	"context"
	"fmt"

	goaudio "github.com/go-audio/audio"

	"github.com/cwbudde/algo-audiograph/dsp/buffer"
)

const ctxCheckInterval = 1 << 16

// fromIntBuffer converts interleaved integer PCM to an AudioBuffer. unsigned8
// marks 8-bit data stored with a 128 offset, as WAV does.
func fromIntBuffer(ctx context.Context, ib *goaudio.IntBuffer, bitDepth int, unsigned8 bool) (*buffer.AudioBuffer, error) {
	if ib == nil || ib.Format == nil || ib.Format.NumChannels < 1 || ib.Format.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: missing format", ErrInvalidData)
	}
	channels := ib.Format.NumChannels
	frames := len(ib.Data) / channels

	scale := 1 / float64(goaudio.IntMaxSignedValue(bitDepth)+1)
	offset := 0
	if bitDepth == 8 && unsigned8 {
		offset = 128
	}

	data := make([][]float64, channels)
	for ch := range data {
		data[ch] = make([]float64, frames)
	}
	for i := range frames {
		if i%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		for ch := range channels {
			data[ch][i] = float64(ib.Data[i*channels+ch]-offset) * scale
		}
	}
	return buffer.FromChannels(data, float64(ib.Format.SampleRate))
}
