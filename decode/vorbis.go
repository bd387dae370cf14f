package decode

import (
	"context"
	"fmt"
	"io"

	"github.com/jfreymuth/oggvorbis"

	"github.com/cwbudde/algo-audiograph/dsp/buffer"
)

// DecodeVorbis decodes an Ogg Vorbis stream.
func DecodeVorbis(ctx context.Context, r io.Reader) (*buffer.AudioBuffer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	samples, format, err := oggvorbis.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return buffer.FromInterleaved(samples, format.Channels, float64(format.SampleRate))
}
