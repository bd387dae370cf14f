package sink

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-audiograph/dsp/buffer"
	"github.com/cwbudde/algo-audiograph/internal/testutil"
)

// fakeSource renders constant per-channel levels and counts quanta.
type fakeSource struct {
	levels  []float64
	quantum int
	rate    float64
	block   *buffer.Block
	quanta  atomic.Int64
	latency atomic.Int64
}

func newFakeSource(quantum int, rate float64, levels ...float64) *fakeSource {
	return &fakeSource{
		levels:  levels,
		quantum: quantum,
		rate:    rate,
		block:   buffer.NewBlock(len(levels), quantum),
	}
}

func (f *fakeSource) RenderQuantum() *buffer.Block {
	f.quanta.Add(1)
	for ch, v := range f.levels {
		s := f.block.Channel(ch)
		for i := range s {
			s[i] = v
		}
	}
	return f.block
}

func (f *fakeSource) SampleRate() float64 { return f.rate }
func (f *fakeSource) QuantumSize() int    { return f.quantum }
func (f *fakeSource) Channels() int       { return len(f.levels) }

func (f *fakeSource) SetOutputLatency(d time.Duration) { f.latency.Store(int64(d)) }

func TestInterleave(t *testing.T) {
	b := buffer.NewBlock(1, 3)
	copy(b.Channel(0), []float64{1, 2, 3})

	got := Interleave(nil, b, 2, 3)
	assert.Equal(t, []float32{1, 0, 2, 0, 3, 0}, got)

	// Shorter frame count and buffer reuse.
	got = Interleave(got, b, 1, 2)
	assert.Equal(t, []float32{1, 2}, got)
}

func TestQuantize(t *testing.T) {
	tests := []struct {
		v     float64
		depth int
		want  int
	}{
		{0, 16, 0},
		{0.5, 16, 16384},
		{-1, 16, -32768},
		{1, 16, 32767},
		{2, 16, 32767},
		{-3, 16, -32768},
		{1, 8, 127},
		{-0.5, 24, -4194304},
	}
	for _, tt := range tests {
		q := newQuantizer(tt.depth, false, 0)
		got := make([]int, 1)
		q.quantize(got, 1, []float64{tt.v}, 1)
		assert.Equal(t, tt.want, got[0], "quantize(%v, %d)", tt.v, tt.depth)
	}
	assert.Zero(t, newQuantizer(16, false, 0).round(math.NaN()))
}

func TestQuantizeStrided(t *testing.T) {
	q := newQuantizer(16, false, 0)
	dst := []int{-1, -1, -1, -1}
	q.quantize(dst[1:], 2, []float64{0.5, 0.25}, 2)
	assert.Equal(t, []int{-1, 16384, -1, 8192}, dst)
	q.quantize(dst, 2, nil, 2)
	assert.Equal(t, []int{0, 16384, 0, 8192}, dst)
}

func TestDitherStaysWithinOneStep(t *testing.T) {
	const want, n = 1000, 10000
	q := newQuantizer(16, true, 7)
	in := make([]float64, n)
	for i := range in {
		in[i] = float64(want) / 32768
	}
	out := make([]int, n)
	q.quantize(out, 1, in, n)

	sum := 0
	for _, s := range out {
		require.InDelta(t, want, s, 1)
		sum += s
	}
	assert.InDelta(t, want, float64(sum)/n, 0.05)

	a, b := make([]int, 100), make([]int, 100)
	newQuantizer(16, true, 3).quantize(a, 1, in[:100], 100)
	newQuantizer(16, true, 3).quantize(b, 1, in[:100], 100)
	assert.Equal(t, a, b)
}

func TestQuantumDuration(t *testing.T) {
	src := newFakeSource(128, 48000, 0)
	assert.Equal(t, 2666667*time.Nanosecond, QuantumDuration(src))
}

func TestNullRendersRequestedFrames(t *testing.T) {
	src := newFakeSource(4, 1000, 0)
	require.NoError(t, Null{Frames: 10}.Run(context.Background(), src))
	assert.Equal(t, int64(3), src.quanta.Load())
}

func TestNullStopsOnCancel(t *testing.T) {
	src := newFakeSource(4, 1000, 0)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Null{}.Run(ctx, src), context.Canceled)
	assert.Zero(t, src.quanta.Load())
}

func TestDriverPacesAndReportsLatency(t *testing.T) {
	src := newFakeSource(4, 1000, 0.5)
	var seen int
	d := Driver{
		Period: time.Millisecond,
		Frames: 8,
		OnQuantum: func(b *buffer.Block) {
			seen++
			assert.Equal(t, 0.5, b.Channel(0)[0])
		},
	}
	require.NoError(t, d.Run(context.Background(), src))
	assert.Equal(t, 2, seen)
	assert.Equal(t, int64(time.Millisecond), src.latency.Load())
}

func TestDriverCancel(t *testing.T) {
	src := newFakeSource(4, 1000, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := Driver{Period: time.Millisecond}.Run(ctx, src)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Positive(t, src.quanta.Load())
}

func TestOfflineWAV(t *testing.T) {
	tests := []struct {
		name  string
		depth int
		want  [2]int
	}{
		{"default 16 bit", 0, [2]int{16384, -8192}},
		{"8 bit", 8, [2]int{64, -32}},
		{"24 bit", 24, [2]int{4194304, -2097152}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.wav")
			f, err := os.Create(path)
			require.NoError(t, err)

			src := newFakeSource(4, 8000, 0.5, -0.25)
			err = OfflineWAV{W: f, Frames: 10, BitDepth: tt.depth}.Run(context.Background(), src)
			require.NoError(t, err)
			require.NoError(t, f.Close())

			data, channels, rate, depth := testutil.ReadWAV(t, path)
			assert.Equal(t, 2, channels)
			assert.Equal(t, 8000, rate)
			if tt.depth == 0 {
				assert.Equal(t, 16, depth)
			} else {
				assert.Equal(t, tt.depth, depth)
			}
			require.Len(t, data, 20)
			for i := 0; i < len(data); i += 2 {
				l, r := data[i], data[i+1]
				if tt.depth == 8 {
					l, r = l-128, r-128
				}
				assert.Equal(t, tt.want[0], l, "frame %d left", i/2)
				assert.Equal(t, tt.want[1], r, "frame %d right", i/2)
			}
		})
	}
}

func TestOfflineWAVDither(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dither.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	src := newFakeSource(4, 8000, 0)
	require.NoError(t, OfflineWAV{W: f, Frames: 400, Dither: true, Seed: 1}.Run(context.Background(), src))
	require.NoError(t, f.Close())

	data, _, _, _ := testutil.ReadWAV(t, path)
	require.Len(t, data, 400)
	nonzero := 0
	for _, v := range data {
		require.InDelta(t, 0, v, 1)
		if v != 0 {
			nonzero++
		}
	}
	assert.Positive(t, nonzero)
}

func TestOfflineWAVRejectsBadSettings(t *testing.T) {
	src := newFakeSource(4, 8000, 0)
	f, err := os.Create(filepath.Join(t.TempDir(), "bad.wav"))
	require.NoError(t, err)
	defer f.Close()

	assert.Error(t, OfflineWAV{W: f, Frames: 4, BitDepth: 12}.Run(context.Background(), src))
	assert.Error(t, OfflineWAV{W: f, Frames: 0}.Run(context.Background(), src))
	assert.Zero(t, src.quanta.Load())
}
