package patch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/cwbudde/algo-audiograph/decode"
	"github.com/cwbudde/algo-audiograph/dsp/automation"
	"github.com/cwbudde/algo-audiograph/dsp/buffer"
	"github.com/cwbudde/algo-audiograph/engine"
	"github.com/cwbudde/algo-audiograph/render"
)

// wiredNode is the surface every engine node shares.
type wiredNode interface {
	engine.Node
	ConnectPorts(dst engine.Node, output, input int) error
	SetChannelCount(count int) error
	SetChannelCountMode(mode render.CountMode) error
	SetChannelInterpretation(in buffer.Interpretation) error
	Release() error
}

type scheduled interface {
	StartAt(when float64) error
	StopAt(when float64) error
}

// Graph is a patch built into a context.
type Graph struct {
	nodes  map[string]engine.Node
	params map[string]map[string]*engine.AudioParam
	order  []string
}

// Node returns the node built for id. DestinationID returns the
// destination.
func (g *Graph) Node(id string) (engine.Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Param returns a node's parameter by name.
func (g *Graph) Param(id, name string) (*engine.AudioParam, bool) {
	p, ok := g.params[id][name]
	return p, ok
}

// IDs returns the patch node ids in build order.
func (g *Graph) IDs() []string {
	return append([]string(nil), g.order...)
}

// Release releases every node the graph created.
func (g *Graph) Release() error {
	var errs []error
	for _, id := range g.order {
		if n, ok := g.nodes[id].(wiredNode); ok {
			if err := n.Release(); err != nil {
				errs = append(errs, fmt.Errorf("release %s: %w", id, err))
			}
		}
	}
	return errors.Join(errs...)
}

// Build creates the patch's nodes in ac, applies parameters and automation,
// connects them and schedules sources. Sample files are decoded with ac's
// decoders, honoring ctx. On error every node created so far is released.
func (p *Patch) Build(ctx context.Context, ac *engine.Context) (*Graph, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	g := &Graph{
		nodes:  map[string]engine.Node{DestinationID: ac.Destination()},
		params: make(map[string]map[string]*engine.AudioParam, len(p.Nodes)),
		order:  make([]string, 0, len(p.Nodes)),
	}
	log := ac.Config().Logger.WithFields(logrus.Fields{"component": "patch", "function": "Build"})

	fail := func(err error) (*Graph, error) {
		if rerr := g.Release(); rerr != nil {
			log.WithError(rerr).Warn("Failed to release partially built graph")
		}
		return nil, err
	}

	for _, desc := range p.Nodes {
		if err := p.buildNode(ctx, ac, g, desc); err != nil {
			return fail(fmt.Errorf("node %q: %w", desc.ID, err))
		}
	}
	for _, c := range p.Connections {
		from := g.nodes[c.From].(wiredNode)
		if err := from.ConnectPorts(g.nodes[c.To], c.Output, c.Input); err != nil {
			return fail(fmt.Errorf("connect %s:%d -> %s:%d: %w", c.From, c.Output, c.To, c.Input, err))
		}
	}
	for _, desc := range p.Nodes {
		if err := schedule(g.nodes[desc.ID], desc); err != nil {
			return fail(fmt.Errorf("node %q: %w", desc.ID, err))
		}
	}

	log.WithFields(logrus.Fields{
		"nodes":       len(p.Nodes),
		"connections": len(p.Connections),
	}).Debug("Patch built")
	return g, nil
}

func (p *Patch) buildNode(ctx context.Context, ac *engine.Context, g *Graph, desc Node) error {
	var (
		n      wiredNode
		params map[string]*engine.AudioParam
	)
	switch desc.Type {
	case TypeGain:
		gn, err := ac.CreateGain()
		if err != nil {
			return err
		}
		n, params = gn, map[string]*engine.AudioParam{"gain": gn.Gain()}
	case TypeDelay:
		maxDelay := desc.MaxDelay
		if maxDelay == 0 {
			maxDelay = 1
		}
		dn, err := ac.CreateDelay(maxDelay)
		if err != nil {
			return err
		}
		n, params = dn, map[string]*engine.AudioParam{"delayTime": dn.DelayTime()}
	case TypeIIRFilter:
		fn, err := ac.CreateIIRFilter(desc.Feedforward, desc.Feedback)
		if err != nil {
			return err
		}
		n = fn
	case TypeAnalyser:
		var (
			an  *engine.AnalyserNode
			err error
		)
		if desc.FFTSize > 0 {
			an, err = ac.CreateAnalyserWithFFTSize(desc.FFTSize)
		} else {
			an, err = ac.CreateAnalyser()
		}
		if err != nil {
			return err
		}
		n = an
	case TypeCompressor:
		cn, err := ac.CreateDynamicsCompressor()
		if err != nil {
			return err
		}
		n = cn
		params = map[string]*engine.AudioParam{
			"threshold": cn.Threshold(),
			"knee":      cn.Knee(),
			"ratio":     cn.Ratio(),
			"attack":    cn.AttackTime(),
			"release":   cn.ReleaseTime(),
		}
	case TypeOscillator:
		on, err := ac.CreateOscillator()
		if err != nil {
			return err
		}
		n = on
		params = map[string]*engine.AudioParam{"frequency": on.Frequency(), "detune": on.Detune()}
		if desc.Waveform != "" {
			w, err := render.ParseWaveform(desc.Waveform)
			if err != nil {
				return err
			}
			if err := on.SetType(w); err != nil {
				return err
			}
		}
	case TypeConstant:
		cn, err := ac.CreateConstantSource()
		if err != nil {
			return err
		}
		n, params = cn, map[string]*engine.AudioParam{"offset": cn.Offset()}
	case TypeBufferSource:
		bn, err := ac.CreateBufferSource()
		if err != nil {
			return err
		}
		n = bn
		params = map[string]*engine.AudioParam{"playbackRate": bn.PlaybackRate(), "detune": bn.Detune()}
	}
	g.track(desc.ID, n, params)

	if bn, ok := n.(*engine.BufferSourceNode); ok {
		if err := p.loadBuffer(ctx, ac, bn, desc); err != nil {
			return err
		}
	}

	if err := configureChannels(n, desc.Channels); err != nil {
		return err
	}
	for name, v := range desc.Params {
		prm, ok := params[name]
		if !ok {
			return fmt.Errorf("%w: no parameter %q", ErrInvalidPatch, name)
		}
		if err := prm.SetValue(v); err != nil {
			return err
		}
	}
	for name, steps := range desc.Automation {
		prm, ok := params[name]
		if !ok {
			return fmt.Errorf("%w: no parameter %q", ErrInvalidPatch, name)
		}
		if err := automate(prm, steps); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) track(id string, n wiredNode, params map[string]*engine.AudioParam) {
	g.nodes[id] = n
	g.params[id] = params
	g.order = append(g.order, id)
}

func (p *Patch) loadBuffer(ctx context.Context, ac *engine.Context, bn *engine.BufferSourceNode, desc Node) error {
	if desc.File != "" {
		path := desc.File
		if !filepath.IsAbs(path) && p.Dir != "" {
			path = filepath.Join(p.Dir, path)
		}
		format := decode.FormatOf(path)
		if format == "" {
			return fmt.Errorf("%w: %s", decode.ErrUnknownFormat, path)
		}
		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()
		b, err := ac.DecodeAudioData(ctx, f, format)
		if err != nil {
			return err
		}
		if err := bn.SetBuffer(b); err != nil {
			return err
		}
	}
	if desc.LoopStart != 0 {
		if err := bn.SetLoopStart(desc.LoopStart); err != nil {
			return err
		}
	}
	if desc.LoopEnd != 0 {
		if err := bn.SetLoopEnd(desc.LoopEnd); err != nil {
			return err
		}
	}
	if desc.Loop {
		return bn.SetLoop(true)
	}
	return nil
}

func configureChannels(n wiredNode, c *Channels) error {
	if c == nil {
		return nil
	}
	if c.Count > 0 {
		if err := n.SetChannelCount(c.Count); err != nil {
			return err
		}
	}
	if c.Mode != "" {
		m, err := render.ParseCountMode(c.Mode)
		if err != nil {
			return err
		}
		if err := n.SetChannelCountMode(m); err != nil {
			return err
		}
	}
	if c.Interpretation != "" {
		in, err := buffer.ParseInterpretation(c.Interpretation)
		if err != nil {
			return err
		}
		if err := n.SetChannelInterpretation(in); err != nil {
			return err
		}
	}
	return nil
}

func automate(p *engine.AudioParam, steps []Automation) error {
	for i, s := range steps {
		var err error
		switch s.Kind {
		case KindCancel:
			err = p.CancelScheduledValues(s.Time)
		case KindCancelAndHold:
			err = p.CancelAndHoldAtTime(s.Time)
		default:
			var ev automation.Event
			ev, _, err = s.event()
			if err == nil {
				err = p.Schedule(ev)
			}
		}
		if err != nil {
			return fmt.Errorf("automation %s[%d]: %w", p.Name(), i, err)
		}
	}
	return nil
}

func schedule(n engine.Node, desc Node) error {
	if desc.Start == nil && desc.Stop == nil {
		return nil
	}
	src, ok := n.(scheduled)
	if !ok {
		return fmt.Errorf("%w: %s nodes cannot be started", ErrInvalidPatch, desc.Type)
	}
	if st := desc.Start; st != nil {
		var err error
		bn, isBuffer := n.(*engine.BufferSourceNode)
		switch {
		case (st.Offset != nil || st.Duration != nil) && !isBuffer:
			err = fmt.Errorf("%w: offset and duration need a buffer source", ErrInvalidPatch)
		case st.Duration != nil:
			off := 0.0
			if st.Offset != nil {
				off = *st.Offset
			}
			err = bn.StartAtWithOffsetAndDuration(st.When, off, *st.Duration)
		case st.Offset != nil:
			err = bn.StartAtWithOffset(st.When, *st.Offset)
		default:
			err = src.StartAt(st.When)
		}
		if err != nil {
			return err
		}
	}
	if desc.Stop != nil {
		return src.StopAt(*desc.Stop)
	}
	return nil
}
