// Package otosink plays a render graph on the system audio device through
// ebitengine/oto.
//
// oto allows one device context per process, so at most one Sink may run
// at a time.
package otosink

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync/atomic"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-audiograph/sink"
)

const (
	bytesPerSample        = 4
	defaultBufferQuanta   = 4
	latencyReportInterval = 100 * time.Millisecond
)

// Sink renders a QuantumSource into the default output device.
type Sink struct {
	// BufferQuanta is the device buffer length in quanta; 0 selects 4.
	BufferQuanta int
	// Frames bounds playback; 0 plays until ctx is done.
	Frames int64
	Log    *logrus.Entry
}

// Run implements sink.Sink. The device pulls quanta on its own goroutine,
// which becomes the render goroutine for src.
func (s Sink) Run(ctx context.Context, src sink.QuantumSource) error {
	log := s.Log
	if log == nil {
		log = logrus.WithField("component", "otosink")
	}
	quanta := s.BufferQuanta
	if quanta <= 0 {
		quanta = defaultBufferQuanta
	}
	bufDur := time.Duration(quanta) * sink.QuantumDuration(src)

	octx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(src.SampleRate()),
		ChannelCount: src.Channels(),
		Format:       oto.FormatFloat32LE,
		BufferSize:   bufDur,
	})
	if err != nil {
		return fmt.Errorf("otosink: open device: %w", err)
	}
	select {
	case <-ready:
	case <-ctx.Done():
		return ctx.Err()
	}

	r := newReader(src, s.Frames)
	player := octx.NewPlayer(r)
	defer player.Close()
	player.Play()

	log.WithFields(logrus.Fields{
		"function":    "Sink.Run",
		"sample_rate": src.SampleRate(),
		"channels":    src.Channels(),
		"buffer":      bufDur,
	}).Info("Playback started")

	lr, _ := src.(sink.LatencyReporter)
	ticker := time.NewTicker(latencyReportInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			player.Pause()
			return ctx.Err()
		case <-ticker.C:
		}
		if err := player.Err(); err != nil {
			return fmt.Errorf("otosink: playback: %w", err)
		}
		if lr != nil {
			frames := player.BufferedSize() / (bytesPerSample * src.Channels())
			lr.SetOutputLatency(bufDur + time.Duration(float64(frames)/src.SampleRate()*float64(time.Second)))
		}
		if r.finished() && !player.IsPlaying() {
			log.WithField("function", "Sink.Run").Info("Playback finished")
			return nil
		}
	}
}

// reader adapts a QuantumSource to the float32 little-endian byte stream
// oto pulls from. Bytes of a quantum that did not fit into the caller's
// slice are kept for the next Read.
type reader struct {
	src        sink.QuantumSource
	limit      int64
	rendered   int64
	interleave []float32
	pending    []byte
	backing    []byte
	done       atomic.Bool
}

func newReader(src sink.QuantumSource, limit int64) *reader {
	return &reader{
		src:     src,
		limit:   limit,
		backing: make([]byte, 0, src.QuantumSize()*src.Channels()*bytesPerSample),
	}
}

func (r *reader) Read(p []byte) (int, error) {
	n := 0
	for n < len(p) {
		if len(r.pending) == 0 {
			if !r.fill() {
				break
			}
		}
		c := copy(p[n:], r.pending)
		r.pending = r.pending[c:]
		n += c
	}
	if n == 0 && len(p) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// fill renders the next quantum into pending. It reports false once the
// frame limit is reached.
func (r *reader) fill() bool {
	frames := r.src.QuantumSize()
	if r.limit > 0 {
		left := r.limit - r.rendered
		if left <= 0 {
			r.done.Store(true)
			return false
		}
		frames = int(min(int64(frames), left))
	}
	channels := r.src.Channels()
	r.interleave = sink.Interleave(r.interleave, r.src.RenderQuantum(), channels, frames)
	r.rendered += int64(frames)

	buf := r.backing[:len(r.interleave)*bytesPerSample]
	for i, v := range r.interleave {
		binary.LittleEndian.PutUint32(buf[i*bytesPerSample:], math.Float32bits(v))
	}
	r.pending = buf
	return true
}

func (r *reader) finished() bool { return r.done.Load() }

var _ sink.Sink = Sink{}
