package otosink

import (
	"encoding/binary"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-audiograph/dsp/buffer"
)

type rampSource struct {
	block *buffer.Block
	next  float64
	calls int
}

func newRampSource(channels, quantum int) *rampSource {
	return &rampSource{block: buffer.NewBlock(channels, quantum)}
}

// RenderQuantum writes an increasing sample counter; channel c is offset by
// 100*c.
func (s *rampSource) RenderQuantum() *buffer.Block {
	s.calls++
	for i := range s.block.Frames() {
		for ch := range s.block.Channels() {
			s.block.Channel(ch)[i] = s.next + 100*float64(ch)
		}
		s.next++
	}
	return s.block
}

func (s *rampSource) SampleRate() float64 { return 8000 }
func (s *rampSource) QuantumSize() int    { return s.block.Frames() }
func (s *rampSource) Channels() int       { return s.block.Channels() }

func decodeFloats(p []byte) []float32 {
	out := make([]float32, len(p)/bytesPerSample)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(p[i*bytesPerSample:]))
	}
	return out
}

func TestReaderInterleavesAcrossPartialReads(t *testing.T) {
	src := newRampSource(2, 4)
	r := newReader(src, 0)

	// 3 frames, then 3 more: the second read spans two quanta.
	p := make([]byte, 3*2*bytesPerSample)
	n, err := r.Read(p)
	require.NoError(t, err)
	require.Equal(t, len(p), n)
	assert.Equal(t, []float32{0, 100, 1, 101, 2, 102}, decodeFloats(p))

	n, err = r.Read(p)
	require.NoError(t, err)
	require.Equal(t, len(p), n)
	assert.Equal(t, []float32{3, 103, 4, 104, 5, 105}, decodeFloats(p))
	assert.Equal(t, 2, src.calls)
}

func TestReaderOddByteCounts(t *testing.T) {
	src := newRampSource(1, 2)
	r := newReader(src, 0)

	var got []byte
	for len(got) < 5*bytesPerSample {
		p := make([]byte, 3)
		n, err := r.Read(p)
		require.NoError(t, err)
		got = append(got, p[:n]...)
	}
	assert.Equal(t, []float32{0, 1, 2, 3, 4}, decodeFloats(got[:5*bytesPerSample]))
}

func TestReaderStopsAtLimit(t *testing.T) {
	src := newRampSource(1, 4)
	r := newReader(src, 6)

	all, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1, 2, 3, 4, 5}, decodeFloats(all))
	assert.True(t, r.finished())
	assert.Equal(t, 2, src.calls)
}
