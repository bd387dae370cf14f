package render

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-audiograph/dsp/buffer"
	"github.com/cwbudde/algo-audiograph/dsp/iir"
	"github.com/cwbudde/algo-audiograph/internal/testutil"
)

func testScope() *Scope {
	return &Scope{SampleRate: testRate, QuantumSize: testQuantum}
}

func constantParam(v float64, frames int) []float64 {
	return testutil.Constant(v, frames)
}

func TestOscillatorWaveforms(t *testing.T) {
	tests := []struct {
		name     string
		waveform Waveform
		freq     float64
		detune   float64
		want     []float64
	}{
		{name: "square", waveform: Square, freq: testRate / 8, want: []float64{1, 1, 1, 1, -1, -1, -1, -1}},
		{name: "square detuned", waveform: Square, freq: testRate / 16, detune: 1200, want: []float64{1, 1, 1, 1, -1, -1, -1, -1}},
		{name: "sawtooth", waveform: Sawtooth, freq: testRate / 8, want: []float64{0, 0.25, 0.5, 0.75, -1, -0.75, -0.5, -0.25}},
		{name: "triangle", waveform: Triangle, freq: testRate / 8, want: []float64{0, 0.5, 1, 0.5, 0, -0.5, -1, -0.5}},
		{name: "sine", waveform: Sine, freq: testRate / 4, want: []float64{0, 1, 0, -1, 0, 1, 0, -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			osc := NewOscillator(tt.waveform)
			require.NoError(t, osc.start(0, 0, false, 0))
			out := buffer.NewBlock(1, testQuantum)
			params := ParamValues{constantParam(tt.freq, testQuantum), constantParam(tt.detune, testQuantum)}

			assert.True(t, osc.Process(nil, []*buffer.Block{out}, params, testScope()))
			testutil.RequireNear(t, out.Channel(0)[:8], tt.want, 1e-12)
			testutil.RequireNear(t, out.Channel(0)[8:16], tt.want, 1e-12)
		})
	}
}

func TestParseWaveform(t *testing.T) {
	for _, w := range []Waveform{Sine, Square, Sawtooth, Triangle} {
		got, err := ParseWaveform(w.String())
		require.NoError(t, err)
		assert.Equal(t, w, got)
	}
	_, err := ParseWaveform("custom")
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestParseCountMode(t *testing.T) {
	for _, m := range []CountMode{CountMax, CountClampedMax, CountExplicit} {
		got, err := ParseCountMode(m.String())
		require.NoError(t, err)
		assert.Equal(t, m, got)
	}
	_, err := ParseCountMode("widest")
	assert.ErrorIs(t, err, ErrNotSupported)
}

func TestChannelConfigComputed(t *testing.T) {
	tests := []struct {
		cfg    ChannelConfig
		widest int
		want   int
	}{
		{cfg: ChannelConfig{Count: 2, Mode: CountMax}, widest: 0, want: 1},
		{cfg: ChannelConfig{Count: 2, Mode: CountMax}, widest: 6, want: 6},
		{cfg: ChannelConfig{Count: 2, Mode: CountClampedMax}, widest: 6, want: 2},
		{cfg: ChannelConfig{Count: 2, Mode: CountClampedMax}, widest: 1, want: 1},
		{cfg: ChannelConfig{Count: 4, Mode: CountExplicit}, widest: 1, want: 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.cfg.computed(tt.widest), "%s count %d widest %d", tt.cfg.Mode, tt.cfg.Count, tt.widest)
	}
}

func TestConstantSourceHonoursSchedule(t *testing.T) {
	c := NewConstantSource()
	require.NoError(t, c.start(4/testRate, 0, false, 0))
	require.NoError(t, c.stop(8/testRate))

	out := buffer.NewBlock(1, testQuantum)
	node := &Node{}
	scope := testScope()
	scope.node = node

	assert.False(t, c.Process(nil, []*buffer.Block{out}, ParamValues{constantParam(2, testQuantum)}, scope))
	for i, v := range out.Channel(0) {
		want := 0.0
		if i >= 4 && i < 8 {
			want = 2
		}
		require.Equal(t, want, v, "frame %d", i)
	}
	assert.True(t, node.finished)
	assert.Equal(t, EventEnded.bit(), node.staged)
}

func TestDelayProcessorDelaysImpulse(t *testing.T) {
	d, err := NewDelay(0.1, testRate, 1)
	require.NoError(t, err)

	in := testutil.Block(testutil.Impulse(testQuantum, 20))
	out := buffer.NewBlock(1, testQuantum)
	params := ParamValues{constantParam(3/testRate, testQuantum)}

	assert.True(t, d.Process([]*buffer.Block{in}, []*buffer.Block{out}, params, testScope()))
	testutil.RequireNear(t, out.Channel(0), testutil.Impulse(testQuantum, 23), 1e-12)

	silent := buffer.NewBlock(1, testQuantum)
	assert.False(t, d.Process([]*buffer.Block{silent}, []*buffer.Block{out}, params, testScope()))
}

func TestDelayProcessorRingsOutDroppedChannels(t *testing.T) {
	d, err := NewDelay(0.1, testRate, 1)
	require.NoError(t, err)

	impulse := testutil.Impulse(testQuantum, testQuantum-1)
	in := testutil.Block(impulse, impulse)
	out := buffer.NewBlock(1, testQuantum)
	params := ParamValues{constantParam(2/testRate, testQuantum)}

	d.Process([]*buffer.Block{in}, []*buffer.Block{out}, params, testScope())
	assert.Equal(t, 2, out.Channels())

	mono := buffer.NewBlock(1, testQuantum)
	d.Process([]*buffer.Block{mono}, []*buffer.Block{out}, params, testScope())
	require.Equal(t, 2, out.Channels())
	assert.InDelta(t, 1, out.Channel(1)[1], 1e-12)
}

func TestNewDelayValidation(t *testing.T) {
	for _, maxDelay := range []float64{0, -1, MaxDelayTime, math.NaN()} {
		_, err := NewDelay(maxDelay, testRate, 1)
		assert.ErrorIs(t, err, ErrNotSupported, "max delay %v", maxDelay)
	}
}

func TestIIRFilterChannelsAreIndependent(t *testing.T) {
	c, err := iir.NewCoefficients([]float64{1}, []float64{1, -0.5})
	require.NoError(t, err)
	f := NewIIRFilter(c, 1)

	imp := testutil.Impulse(testQuantum, 0)
	scaled := make([]float64, testQuantum)
	scaled[0] = 2
	in := testutil.Block(imp, scaled)
	out := buffer.NewBlock(1, testQuantum)

	assert.True(t, f.Process([]*buffer.Block{in}, []*buffer.Block{out}, nil, testScope()))
	require.Equal(t, 2, out.Channels())
	for i := range testQuantum {
		want := math.Pow(0.5, float64(i))
		require.InDelta(t, want, out.Channel(0)[i], 1e-12)
		require.InDelta(t, 2*want, out.Channel(1)[i], 1e-12)
	}

	// The second channel keeps ringing after its input goes away.
	mono := buffer.NewBlock(1, testQuantum)
	f.Process([]*buffer.Block{mono}, []*buffer.Block{out}, nil, testScope())
	require.Equal(t, 2, out.Channels())
	assert.InDelta(t, 2*math.Pow(0.5, testQuantum), out.Channel(1)[0], 1e-15)
}

func TestIIRFilterSettles(t *testing.T) {
	c, err := iir.NewCoefficients([]float64{1}, []float64{1, -0.5})
	require.NoError(t, err)
	f := NewIIRFilter(c, 1)

	in := testutil.Block(testutil.Impulse(testQuantum, 0))
	out := buffer.NewBlock(1, testQuantum)
	silent := buffer.NewBlock(1, testQuantum)

	assert.True(t, f.Process([]*buffer.Block{in}, []*buffer.Block{out}, nil, testScope()))
	tail := true
	for range 4 {
		tail = f.Process([]*buffer.Block{silent}, []*buffer.Block{out}, nil, testScope())
	}
	assert.False(t, tail)
}

func TestAnalyserFindsSinePeak(t *testing.T) {
	const size = 64
	a, err := NewAnalyser(size)
	require.NoError(t, err)
	require.NoError(t, a.SetSmoothingTimeConstant(0))

	freq := 4 * testRate / size
	sine := testutil.Sine(freq, testRate, 1, 2*testQuantum)
	out := buffer.NewBlock(1, testQuantum)
	for q := range 2 {
		in := testutil.Block(sine[q*testQuantum : (q+1)*testQuantum])
		assert.False(t, a.Process([]*buffer.Block{in}, []*buffer.Block{out}, nil, testScope()))
		testutil.RequireNear(t, out.Channel(0), in.Channel(0), 0)
	}

	td := make([]float64, size)
	a.GetFloatTimeDomainData(td)
	testutil.RequireNear(t, td, sine, 0)

	spectrum := make([]float64, a.FrequencyBinCount())
	require.NoError(t, a.GetFloatFrequencyData(spectrum))
	peak := 0
	for i, v := range spectrum {
		if v > spectrum[peak] {
			peak = i
		}
	}
	assert.Equal(t, 4, peak)

	bytes := make([]byte, a.FrequencyBinCount())
	require.NoError(t, a.GetByteFrequencyData(bytes))
	assert.Equal(t, byte(255), bytes[4])
}

func TestAnalyserMixesChannelsToMono(t *testing.T) {
	a, err := NewAnalyser(MinFFTSize)
	require.NoError(t, err)

	in := testutil.Block(testutil.Constant(1, MinFFTSize), testutil.Constant(3, MinFFTSize))
	out := buffer.NewBlock(1, MinFFTSize)
	a.Process([]*buffer.Block{in}, []*buffer.Block{out}, nil, testScope())

	td := make([]float64, MinFFTSize)
	a.GetFloatTimeDomainData(td)
	testutil.RequireNear(t, td, testutil.Constant(2, MinFFTSize), 0)
	assert.Equal(t, 2, out.Channels())
}

func TestAnalyserValidation(t *testing.T) {
	for _, size := range []int{0, 16, 48, 65536} {
		_, err := NewAnalyser(size)
		assert.ErrorIs(t, err, ErrNotSupported, "size %d", size)
	}
	a, err := NewAnalyser(DefaultFFTSize)
	require.NoError(t, err)
	assert.ErrorIs(t, a.SetSmoothingTimeConstant(1.5), ErrNotSupported)
	assert.ErrorIs(t, a.SetDecibelRange(-30, -100), ErrNotSupported)
}

func TestGainScalesEachChannel(t *testing.T) {
	in := testutil.Block([]float64{1, 2, 3, 4}, []float64{-1, -2, -3, -4})
	out := buffer.NewBlock(2, 4)
	g := NewGain()

	g.Process([]*buffer.Block{in}, []*buffer.Block{out}, ParamValues{{0.5}}, testScope())
	assert.Equal(t, []float64{0.5, 1, 1.5, 2}, out.Channel(0))

	g.Process([]*buffer.Block{in}, []*buffer.Block{out}, ParamValues{{0, 1, 2, 3}}, testScope())
	assert.Equal(t, []float64{0, 2, 6, 12}, out.Channel(0))
	assert.Equal(t, []float64{0, -2, -6, -12}, out.Channel(1))
}

func compressorValues(threshold, knee, ratio, attack, release float64) ParamValues {
	return ParamValues{{threshold}, {knee}, {ratio}, {attack}, {release}}
}

func TestCompressorSteadyState(t *testing.T) {
	// Threshold -20 dB, ratio 4, hard knee: full scale is reduced by 15 dB and
	// makeup restores 9 dB.
	tests := []struct {
		name          string
		ratio         float64
		level         float64
		want          float64
		wantReduction float64
	}{
		{name: "below threshold gets makeup", ratio: 4, level: 0.01, want: 0.01 * math.Pow(10, 9.0/20)},
		{name: "full scale", ratio: 4, level: 1, want: math.Pow(10, -6.0/20), wantReduction: -15},
		{name: "ratio one is transparent", ratio: 1, level: 1, want: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCompressor()
			in := testutil.Block(testutil.Constant(tt.level, testQuantum))
			out := buffer.NewBlock(1, testQuantum)

			assert.False(t, c.Process([]*buffer.Block{in}, []*buffer.Block{out},
				compressorValues(-20, 0, tt.ratio, 0, 0), testScope()))
			testutil.RequireNear(t, out.Channel(0), testutil.Constant(tt.want, testQuantum), 1e-9)
			assert.InDelta(t, tt.wantReduction, c.Reduction(), 1e-9)
		})
	}
}

func TestCompressorLinksChannels(t *testing.T) {
	c := NewCompressor()
	in := testutil.Block(testutil.Constant(1, testQuantum), testutil.Constant(0.01, testQuantum))
	out := buffer.NewBlock(2, testQuantum)

	c.Process([]*buffer.Block{in}, []*buffer.Block{out}, compressorValues(-20, 0, 4, 0, 0), testScope())
	testutil.RequireNear(t, out.Channel(1), testutil.Constant(0.01*math.Pow(10, -6.0/20), testQuantum), 1e-9)
}

func TestCompressorAttackSmoothsOnset(t *testing.T) {
	c := NewCompressor()
	in := testutil.Block(testutil.Constant(1, testQuantum))
	out := buffer.NewBlock(1, testQuantum)

	c.Process([]*buffer.Block{in}, []*buffer.Block{out}, compressorValues(-20, 0, 4, 0.1, 0.1), testScope())
	got := out.Channel(0)
	for i := 1; i < len(got); i++ {
		require.LessOrEqual(t, got[i], got[i-1], "frame %d", i)
	}
	assert.Greater(t, got[0], 1.0)
	assert.Less(t, got[len(got)-1], 1.0)
}

func TestCompressorSoftKnee(t *testing.T) {
	c := NewCompressor()
	atThreshold := math.Pow(10, -20.0/20)

	c.configure(compressorValues(-20, 0, 4, 0, 0), testRate)
	assert.Equal(t, 1.0, c.gainFor(atThreshold))

	// A 12 dB knee centred on the threshold reduces by 12/8 * 0.75 dB there.
	c.configure(compressorValues(-20, 12, 4, 0, 0), testRate)
	assert.InDelta(t, -1.125, 20*math.Log10(c.gainFor(atThreshold)), 1e-9)
	assert.Equal(t, 1.0, c.gainFor(math.Pow(10, -27.0/20)))
	assert.InDelta(t, -0.75*7, 20*math.Log10(c.gainFor(math.Pow(10, -13.0/20))), 1e-9)
}
