package render

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/cwbudde/algo-audiograph/dsp/buffer"
)

const (
	testRate    = 256.0
	testQuantum = 32
)

type harness struct {
	t      *testing.T
	exec   *Executor
	cmds   chan Command
	events chan Event
	next   int
}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newHarness(t *testing.T, channels, eventCap int) *harness {
	t.Helper()
	dest, err := NewNode(MakeNodeID(0, 1), DestinationDef(channels), testQuantum)
	require.NoError(t, err)

	h := &harness{
		t:      t,
		cmds:   make(chan Command, 64),
		events: make(chan Event, eventCap),
		next:   1,
	}
	h.exec, err = NewExecutor(Config{
		SampleRate:  testRate,
		QuantumSize: testQuantum,
		Channels:    channels,
		MaxNodes:    16,
		Logger:      quietLogger(),
	}, dest, h.cmds, h.events)
	require.NoError(t, err)
	return h
}

func (h *harness) dest() NodeID { return MakeNodeID(0, 1) }

func (h *harness) add(def NodeDef) NodeID {
	h.t.Helper()
	id := MakeNodeID(h.next, 1)
	h.next++
	n, err := NewNode(id, def, testQuantum)
	require.NoError(h.t, err)
	h.send(AddNode{Node: n})
	return id
}

func (h *harness) send(cmds ...Command) {
	for _, c := range cmds {
		h.cmds <- c
	}
}

func (h *harness) connect(from, to NodeID) {
	h.send(Connect{From: from, To: to})
}

// render runs n quanta and returns channel ch of the destination output.
func (h *harness) render(n, ch int) []float64 {
	out := make([]float64, 0, n*testQuantum)
	for range n {
		b := h.exec.RenderQuantum()
		out = append(out, b.Channel(ch)...)
	}
	return out
}

func (h *harness) drainEvents() []Event {
	var evs []Event
	for {
		select {
		case ev := <-h.events:
			evs = append(evs, ev)
		default:
			return evs
		}
	}
}

func eventsOf(evs []Event, kind EventKind) []Event {
	var out []Event
	for _, ev := range evs {
		if ev.Kind == kind {
			out = append(out, ev)
		}
	}
	return out
}

func constantDef(src *ConstantSource) NodeDef {
	return NodeDef{
		Kind:      "constant",
		Outputs:   1,
		Channels:  ChannelConfig{Count: 2, Mode: CountMax},
		Params:    ConstantSourceParams(),
		Processor: src,
	}
}

func gainDef() NodeDef {
	return NodeDef{
		Kind:      "gain",
		Inputs:    1,
		Outputs:   1,
		Channels:  ChannelConfig{Count: 2, Mode: CountMax},
		Params:    GainParams(),
		Processor: NewGain(),
	}
}

func bufferSourceDef(src *BufferSource) NodeDef {
	return NodeDef{
		Kind:      "buffer-source",
		Outputs:   1,
		Channels:  ChannelConfig{Count: 2, Mode: CountMax},
		Params:    BufferSourceParams(),
		Processor: src,
	}
}

// rampBuffer returns a mono buffer whose sample i is i+1.
func rampBuffer(t *testing.T, frames int) *buffer.AudioBuffer {
	t.Helper()
	data := make([]float64, frames)
	for i := range data {
		data[i] = float64(i + 1)
	}
	b, err := buffer.FromChannels([][]float64{data}, testRate)
	require.NoError(t, err)
	return b
}

// funcProcessor adapts a function to Processor.
type funcProcessor func(inputs, outputs []*buffer.Block, params ParamValues, scope *Scope) bool

func (f funcProcessor) Process(inputs, outputs []*buffer.Block, params ParamValues, scope *Scope) bool {
	return f(inputs, outputs, params, scope)
}
