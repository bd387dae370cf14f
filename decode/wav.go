package decode

import (
	"context"
	"fmt"
	"io"

	"github.com/go-audio/wav"

	"github.com/cwbudde/algo-audiograph/dsp/buffer"
)

const wavFormatPCM = 1

// DecodeWAV decodes integer PCM WAV data of 8, 16, 24 or 32 bits.
func DecodeWAV(ctx context.Context, r io.Reader) (*buffer.AudioBuffer, error) {
	rs, err := readSeeker(r)
	if err != nil {
		return nil, err
	}
	dec := wav.NewDecoder(rs)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE file", ErrInvalidData)
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: wav audio format %d", ErrNotSupported, dec.WavAudioFormat)
	}
	switch dec.BitDepth {
	case 8, 16, 24, 32:
	default:
		return nil, fmt.Errorf("%w: %d-bit wav", ErrNotSupported, dec.BitDepth)
	}

	ib, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	return fromIntBuffer(ctx, ib, int(dec.BitDepth), true)
}
