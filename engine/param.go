package engine

import (
	"fmt"
	"slices"
	"sync"

	"github.com/cwbudde/algo-audiograph/dsp/automation"
	"github.com/cwbudde/algo-audiograph/render"
)

// AudioParam is the control handle of one automatable node parameter.
//
// Calls are validated against a control-side copy of the automation
// timeline, so scheduling conflicts are reported synchronously. The render
// side applies the same rules and is authoritative.
type AudioParam struct {
	ctx   *Context
	node  render.NodeID
	index int
	desc  render.ParamDescriptor

	mu     sync.Mutex
	mirror *automation.Timeline
}

func newAudioParam(ctx *Context, node render.NodeID, index int, desc render.ParamDescriptor) *AudioParam {
	return &AudioParam{
		ctx:    ctx,
		node:   node,
		index:  index,
		desc:   desc,
		mirror: desc.NewTimeline(),
	}
}

func (p *AudioParam) Name() string { return p.desc.Name }

func (p *AudioParam) DefaultValue() float64 { return p.desc.Default }

func (p *AudioParam) MinValue() float64 { return p.desc.Min }

func (p *AudioParam) MaxValue() float64 { return p.desc.Max }

func (p *AudioParam) Rate() render.Rate { return p.desc.Rate }

// Value returns the value the automation yields at the context's current
// time.
func (p *AudioParam) Value() float64 {
	now := p.ctx.CurrentTime()
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mirror.Advance(now)
	return p.mirror.ValueAt(now)
}

// SetValue sets the value at the current time.
func (p *AudioParam) SetValue(v float64) error {
	return p.update(func(tl *automation.Timeline, now float64) error {
		return tl.SetValue(v, now)
	}, render.SetParamValue{Node: p.node, Param: p.index, Value: v})
}

// SetValueAtTime jumps to v at t.
func (p *AudioParam) SetValueAtTime(v, t float64) error {
	return p.schedule(automation.Event{Kind: automation.SetValue, Value: v, Time: t})
}

// LinearRampToValueAtTime ramps linearly from the previous event to v at t.
func (p *AudioParam) LinearRampToValueAtTime(v, t float64) error {
	return p.schedule(automation.Event{Kind: automation.LinearRamp, Value: v, Time: t})
}

// ExponentialRampToValueAtTime ramps geometrically from the previous event to
// v at t. The start value and v must be non-zero with equal signs.
func (p *AudioParam) ExponentialRampToValueAtTime(v, t float64) error {
	return p.schedule(automation.Event{Kind: automation.ExponentialRamp, Value: v, Time: t})
}

// SetTargetAtTime approaches target from t with time constant tau.
func (p *AudioParam) SetTargetAtTime(target, t, tau float64) error {
	return p.schedule(automation.Event{Kind: automation.SetTarget, Value: target, Time: t, TimeConstant: tau})
}

// SetValueCurveAtTime spreads curve over [t, t+duration). The curve is
// copied.
func (p *AudioParam) SetValueCurveAtTime(curve []float64, t, duration float64) error {
	return p.schedule(automation.Event{
		Kind:     automation.SetValueCurve,
		Curve:    slices.Clone(curve),
		Time:     t,
		Duration: duration,
	})
}

// CancelScheduledValues removes every event at or after t.
func (p *AudioParam) CancelScheduledValues(t float64) error {
	return p.cancel(t, false)
}

// CancelAndHoldAtTime removes every event after t and holds the value at t.
func (p *AudioParam) CancelAndHoldAtTime(t float64) error {
	return p.cancel(t, true)
}

// Schedule inserts a prepared automation event. Patch loading uses it.
func (p *AudioParam) Schedule(ev automation.Event) error {
	ev.Curve = slices.Clone(ev.Curve)
	return p.schedule(ev)
}

func (p *AudioParam) schedule(ev automation.Event) error {
	if err := checkTime("event time", ev.Time); err != nil {
		return err
	}
	return p.update(func(tl *automation.Timeline, now float64) error {
		return tl.Insert(ev, now)
	}, render.ScheduleParamEvent{Node: p.node, Param: p.index, Event: ev})
}

func (p *AudioParam) cancel(t float64, hold bool) error {
	if err := checkTime("cancel time", t); err != nil {
		return err
	}
	return p.update(func(tl *automation.Timeline, _ float64) error {
		if hold {
			tl.CancelAndHold(t)
		} else {
			tl.CancelScheduledValues(t)
		}
		return nil
	}, render.CancelParamEvents{Node: p.node, Param: p.index, Time: t, Hold: hold})
}

// update applies change to a copy of the mirror and commits it once cmd has
// been handed to the render side.
func (p *AudioParam) update(change func(*automation.Timeline, float64) error, cmd render.Command) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := p.ctx.CurrentTime()
	p.mirror.Advance(now)
	next := p.mirror.Clone()
	if err := change(next, now); err != nil {
		return p.wrap(err)
	}
	if err := p.ctx.send(cmd); err != nil {
		return err
	}
	p.mirror = next
	return nil
}

func (p *AudioParam) wrap(err error) error {
	return fmt.Errorf("param %s of node %v: %w", p.desc.Name, p.node, err)
}
