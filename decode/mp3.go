package decode

import (
	"context"
	"errors"
	"fmt"
	"io"

	gomp3 "github.com/hajimehoshi/go-mp3"

	"github.com/cwbudde/algo-audiograph/dsp/buffer"
)

// go-mp3 always produces 16-bit little-endian stereo.
const (
	mp3Channels  = 2
	mp3ReadBytes = 8192
)

// DecodeMP3 decodes MPEG-1/2 Layer III data.
func DecodeMP3(ctx context.Context, r io.Reader) (*buffer.AudioBuffer, error) {
	dec, err := gomp3.NewDecoder(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
	}

	var samples []float32
	if n := dec.Length(); n > 0 {
		samples = make([]float32, 0, n/2)
	}
	buf := make([]byte, mp3ReadBytes)
	carry := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		n, err := dec.Read(buf[carry:])
		n += carry
		even := n &^ 1
		for i := 0; i < even; i += 2 {
			v := int16(uint16(buf[i]) | uint16(buf[i+1])<<8)
			samples = append(samples, float32(v)/32768)
		}
		carry = copy(buf, buf[even:n])
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidData, err)
		}
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no mp3 frames", ErrInvalidData)
	}
	return buffer.FromInterleaved(samples, mp3Channels, float64(dec.SampleRate()))
}
