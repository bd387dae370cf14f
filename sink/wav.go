package sink

import (
	"context"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// OfflineWAV renders Frames frames as fast as possible and writes them as
// integer PCM WAV.
type OfflineWAV struct {
	W      io.WriteSeeker
	Frames int64
	// BitDepth is 8, 16, 24 or 32; 0 selects 16.
	BitDepth int
	// Dither adds TPDF dither before quantization. Seed makes the noise
	// reproducible.
	Dither bool
	Seed   int64
}

// Run implements Sink. The encoder is closed on success, so W holds a
// complete file; W itself is not closed.
func (o OfflineWAV) Run(ctx context.Context, src QuantumSource) error {
	depth := o.BitDepth
	if depth == 0 {
		depth = 16
	}
	switch depth {
	case 8, 16, 24, 32:
	default:
		return fmt.Errorf("sink: unsupported wav bit depth %d", depth)
	}
	if o.Frames <= 0 {
		return fmt.Errorf("sink: offline render needs a positive frame count, got %d", o.Frames)
	}

	channels := src.Channels()
	q := src.QuantumSize()
	enc := wav.NewEncoder(o.W, int(src.SampleRate()), depth, channels, 1)
	ib := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: channels, SampleRate: int(src.SampleRate())},
		Data:           make([]int, q*channels),
		SourceBitDepth: depth,
	}
	quant := newQuantizer(depth, o.Dither, o.Seed)

	for done := int64(0); done < o.Frames; done += int64(q) {
		if err := ctx.Err(); err != nil {
			return err
		}
		frames := int(min(int64(q), o.Frames-done))
		b := src.RenderQuantum()
		ib.Data = ib.Data[:frames*channels]
		for ch := range channels {
			var in []float64
			if ch < b.Channels() {
				in = b.Channel(ch)
			}
			quant.quantize(ib.Data[ch:], channels, in, frames)
		}
		if depth == 8 {
			for i := range ib.Data {
				ib.Data[i] += 128
			}
		}
		if err := enc.Write(ib); err != nil {
			return fmt.Errorf("sink: write wav: %w", err)
		}
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("sink: finish wav: %w", err)
	}
	return nil
}
