package decode

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/pion/opus"

	"github.com/cwbudde/algo-audiograph/dsp/buffer"
)

// 120 ms of stereo 16-bit audio at 48 kHz, the longest Opus packet.
const opusMaxOutput = 5760 * 2 * 2

// DecodeOpusPackets decodes a stream of raw Opus packets, each preceded by
// its length as a big-endian uint16. Every packet must use the same channel
// layout and bandwidth. Only the modes the pion decoder implements are
// supported.
func DecodeOpusPackets(ctx context.Context, r io.Reader) (*buffer.AudioBuffer, error) {
	dec := opus.NewDecoder()
	out := make([]byte, opusMaxOutput)
	pkt := make([]byte, 0, 1500)
	var hdr [2]byte

	var samples []float32
	channels, rate := 0, 0
	for index := 0; ; index++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("%w: packet %d header: %w", ErrInvalidData, index, err)
		}
		size := int(binary.BigEndian.Uint16(hdr[:]))
		if size == 0 {
			return nil, fmt.Errorf("%w: packet %d is empty", ErrInvalidData, index)
		}
		if cap(pkt) < size {
			pkt = make([]byte, size)
		}
		pkt = pkt[:size]
		if _, err := io.ReadFull(r, pkt); err != nil {
			return nil, fmt.Errorf("%w: packet %d body: %w", ErrInvalidData, index, err)
		}

		bandwidth, stereo, err := dec.Decode(pkt, out)
		if err != nil {
			return nil, fmt.Errorf("%w: packet %d: %w", ErrNotSupported, index, err)
		}
		ch := 1
		if stereo {
			ch = 2
		}
		sr := int(bandwidth.SampleRate())
		if channels == 0 {
			channels, rate = ch, sr
		} else if ch != channels || sr != rate {
			return nil, fmt.Errorf("%w: packet %d changes layout to %d ch at %d Hz",
				ErrNotSupported, index, ch, sr)
		}

		n := min(opusPacketSamples(pkt, rate)*ch, len(out)/2)
		for i := range n {
			v := int16(binary.LittleEndian.Uint16(out[2*i:]))
			samples = append(samples, float32(v)/32768)
		}
	}
	if channels == 0 {
		return nil, fmt.Errorf("%w: no opus packets", ErrInvalidData)
	}
	return buffer.FromInterleaved(samples, channels, float64(rate))
}

// opusPacketSamples returns the samples per channel a packet decodes to at
// rate, from its TOC byte.
func opusPacketSamples(pkt []byte, rate int) int {
	if len(pkt) == 0 {
		return 0
	}
	toc := pkt[0]
	config := int(toc >> 3)

	// Frame duration in units of 2.5 ms.
	var units int
	switch {
	case config < 12:
		units = [4]int{4, 8, 16, 24}[config%4]
	case config < 16:
		units = [2]int{4, 8}[config%2]
	default:
		units = [4]int{1, 2, 4, 8}[config%4]
	}

	frames := 1
	switch toc & 0x3 {
	case 1, 2:
		frames = 2
	case 3:
		if len(pkt) < 2 {
			return 0
		}
		frames = int(pkt[1] & 0x3f)
	}
	return frames * units * rate / 400
}
