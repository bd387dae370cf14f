package decode

import (
	"context"
	"fmt"
	"io"

	"github.com/go-audio/aiff"
	goaudio "github.com/go-audio/audio"

	"github.com/cwbudde/algo-audiograph/dsp/buffer"
)

const aiffChunkSamples = 4096

// DecodeAIFF decodes AIFF data of 8, 16, 24 or 32 bits.
func DecodeAIFF(ctx context.Context, r io.Reader) (*buffer.AudioBuffer, error) {
	rs, err := readSeeker(r)
	if err != nil {
		return nil, err
	}
	dec := aiff.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not an AIFF file", ErrInvalidData)
	}
	dec.ReadInfo()
	switch dec.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-bit aiff", ErrNotSupported, dec.BitDepth)
	}
	format := dec.Format()
	if format == nil {
		return nil, fmt.Errorf("%w: aiff without COMM chunk", ErrInvalidData)
	}

	all := &goaudio.IntBuffer{Format: format, Data: make([]int, 0, aiffChunkSamples)}
	chunk := &goaudio.IntBuffer{Format: format, Data: make([]int, aiffChunkSamples)}
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := dec.PCMBuffer(chunk)
		all.Data = append(all.Data, chunk.Data[:n]...)
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
		}
		if n == 0 || err == io.EOF {
			break
		}
	}
	return fromIntBuffer(ctx, all, int(dec.BitDepth), false)
}
