package automation

import (
	"fmt"
	"math"
	"slices"
)

const defaultEventCapacity = 8

// Timeline is a default value plus time-ordered automation events.
// It is not safe for concurrent use.
type Timeline struct {
	events []Event

	// State in effect before the first event.
	baseTime  float64
	baseValue float64

	defaultValue float64
	minValue     float64
	maxValue     float64
}

// New returns an empty Timeline. Evaluated values are clamped to
// [minValue, maxValue].
func New(defaultValue, minValue, maxValue float64) *Timeline {
	if minValue > maxValue {
		minValue, maxValue = maxValue, minValue
	}
	return &Timeline{
		events:       make([]Event, 0, defaultEventCapacity),
		baseValue:    defaultValue,
		defaultValue: defaultValue,
		minValue:     minValue,
		maxValue:     maxValue,
	}
}

// DefaultValue returns the value the timeline was created with.
func (tl *Timeline) DefaultValue() float64 { return tl.defaultValue }

// MinValue returns the lower clamp bound.
func (tl *Timeline) MinValue() float64 { return tl.minValue }

// MaxValue returns the upper clamp bound.
func (tl *Timeline) MaxValue() float64 { return tl.maxValue }

// Len returns the number of pending events.
func (tl *Timeline) Len() int { return len(tl.events) }

// Events returns a copy of the pending events.
func (tl *Timeline) Events() []Event {
	return slices.Clone(tl.events)
}

// Clone returns an independent copy. Value curves are shared.
func (tl *Timeline) Clone() *Timeline {
	c := *tl
	c.events = slices.Grow(slices.Clone(tl.events), defaultEventCapacity)
	return &c
}

// SetValue changes the value at now. With no pending events the base value is
// overwritten in place; otherwise a SetValue event is inserted at now.
func (tl *Timeline) SetValue(v, now float64) error {
	if !finite(v) {
		return fmt.Errorf("%w: value %v", ErrSchedulingConflict, v)
	}
	if len(tl.events) == 0 {
		tl.baseTime = math.Max(tl.baseTime, now)
		tl.baseValue = v
		return nil
	}
	return tl.Insert(Event{Kind: SetValue, Value: v, Time: now}, now)
}

// Insert schedules ev. now is the caller's current time; earlier event times
// are clamped to it. On error the timeline is left unchanged.
func (tl *Timeline) Insert(ev Event, now float64) error {
	if err := ev.validate(); err != nil {
		return err
	}
	ev.anchored = false
	ev.cut = false
	if ev.Time < now {
		ev.Time = now
	}
	if err := tl.checkCurveOverlap(&ev); err != nil {
		return err
	}

	pos := len(tl.events)
	replace := -1
	for i := range tl.events {
		if tl.events[i].Time > ev.Time {
			pos = i
			break
		}
	}
	for j := pos - 1; j >= 0 && tl.events[j].Time == ev.Time; j-- {
		if tl.events[j].Kind == ev.Kind {
			replace = j
			break
		}
	}

	if ev.isRamp() {
		predIdx := pos - 1
		if replace >= 0 {
			predIdx = replace - 1
		}
		if predIdx >= 0 && tl.events[predIdx].Kind == SetTarget {
			anchor := math.Min(math.Max(now, tl.events[predIdx].Time), ev.Time)
			ev.anchored = true
			ev.anchorTime = anchor
			ev.anchorValue = tl.raw(anchor)
		}
	}

	var replaced Event
	at := pos
	if replace >= 0 {
		at = replace
		replaced = tl.events[replace]
		tl.events[replace] = ev
	} else {
		tl.events = slices.Insert(tl.events, pos, ev)
	}

	err := tl.checkExponentialStart(at)
	if err == nil {
		err = tl.checkExponentialStart(at + 1)
	}
	if err != nil {
		tl.undo(at, replace, replaced)
		return err
	}
	return nil
}

func (tl *Timeline) undo(at, replace int, replaced Event) {
	if replace >= 0 {
		tl.events[replace] = replaced
		return
	}
	tl.events = slices.Delete(tl.events, at, at+1)
}

func (tl *Timeline) checkCurveOverlap(ev *Event) error {
	for i := range tl.events {
		e := &tl.events[i]
		if e.Kind == SetValueCurve && ev.Time >= e.Time && ev.Time < e.curveEnd() {
			return fmt.Errorf("%w: %s at %v falls inside value curve [%v, %v)",
				ErrSchedulingConflict, ev.Kind, ev.Time, e.Time, e.curveEnd())
		}
		if ev.Kind == SetValueCurve && e.Time >= ev.Time && e.Time < ev.Time+ev.Duration {
			return fmt.Errorf("%w: value curve [%v, %v) overlaps %s at %v",
				ErrSchedulingConflict, ev.Time, ev.Time+ev.Duration, e.Kind, e.Time)
		}
	}
	return nil
}

// checkExponentialStart verifies the exponential ramp at index i, if any,
// starts from a non-zero value with the same sign as its target.
func (tl *Timeline) checkExponentialStart(i int) error {
	if i < 0 || i >= len(tl.events) || tl.events[i].Kind != ExponentialRamp {
		return nil
	}
	_, v0 := tl.rampStart(i)
	v1 := tl.events[i].Value
	if v0 == 0 || (v0 < 0) != (v1 < 0) {
		return fmt.Errorf("%w: exponential ramp from %v to %v at %v",
			ErrSchedulingConflict, v0, v1, tl.events[i].Time)
	}
	return nil
}

// CancelScheduledValues removes every event at or after t.
func (tl *Timeline) CancelScheduledValues(t float64) {
	for i := range tl.events {
		if tl.events[i].Time >= t {
			tl.events = tl.events[:i]
			return
		}
	}
}

// CancelAndHold removes every event strictly after t and holds the value the
// timeline had at t: a ramp in flight is shortened to end at t, and an active
// target approach or value curve is frozen at t.
func (tl *Timeline) CancelAndHold(t float64) {
	held := tl.raw(t)

	cutAt := len(tl.events)
	for i := range tl.events {
		if tl.events[i].Time > t {
			cutAt = i
			break
		}
	}

	if cutAt < len(tl.events) && tl.events[cutAt].isRamp() {
		t0, _ := tl.rampStart(cutAt)
		if t0 <= t {
			ramp := tl.events[cutAt]
			ramp.Time = t
			ramp.Value = held
			tl.events = append(tl.events[:cutAt], ramp)
			return
		}
	}
	tl.events = tl.events[:cutAt]

	if cutAt == 0 {
		return
	}
	last := &tl.events[cutAt-1]
	switch {
	case last.Kind == SetTarget:
		tl.events = append(tl.events, Event{Kind: SetValue, Value: held, Time: t})
	case last.Kind == SetValueCurve && t < last.curveEnd():
		last.cut = true
		last.cutTime = t
		last.cutValue = held
	}
}

// Advance discards events that can no longer influence values at or after
// now. Values for times before now may change afterwards.
func (tl *Timeline) Advance(now float64) {
	for len(tl.events) >= 2 && tl.events[1].Time <= now {
		cur := tl.walk(1, math.Inf(1)).cur
		next := &tl.events[1]
		if next.isRamp() && !next.anchored {
			next.anchored = true
			next.anchorTime = cur.t
			next.anchorValue = cur.v
		}
		tl.baseTime = next.Time
		tl.baseValue = cur.hold(next.Time)
		tl.events = append(tl.events[:0], tl.events[1:]...)
	}
	if len(tl.events) == 1 {
		ev := &tl.events[0]
		end := ev.Time
		if ev.Kind == SetValueCurve {
			end = ev.curveEnd()
		}
		if ev.Kind != SetTarget && end <= now {
			cur := tl.walk(1, math.Inf(1)).cur
			tl.baseTime = cur.t
			tl.baseValue = cur.v
			tl.events = tl.events[:0]
		}
	}
}

// ValueAt returns the clamped value at time t.
func (tl *Timeline) ValueAt(t float64) float64 {
	return tl.clamp(tl.raw(t))
}

// Fill writes the clamped value at start + i*dt into dst[i].
func (tl *Timeline) Fill(dst []float64, start, dt float64) {
	if len(tl.events) == 0 {
		v := tl.clamp(tl.baseValue)
		for i := range dst {
			dst[i] = v
		}
		return
	}
	for i := range dst {
		dst[i] = tl.clamp(tl.raw(start + float64(i)*dt))
	}
}

func (tl *Timeline) clamp(v float64) float64 {
	if v < tl.minValue {
		return tl.minValue
	}
	if v > tl.maxValue {
		return tl.maxValue
	}
	return v
}

func (tl *Timeline) raw(t float64) float64 {
	return tl.walk(len(tl.events), t).value
}

// rampStart returns the point the ramp at index i interpolates from.
func (tl *Timeline) rampStart(i int) (float64, float64) {
	ev := &tl.events[i]
	if ev.anchored {
		return ev.anchorTime, ev.anchorValue
	}
	cur := tl.walk(i, math.Inf(1)).cur
	return cur.t, cur.v
}

// cursor is the state one completed event leaves for the next.
type cursor struct {
	t, v   float64
	target *Event
}

func (c cursor) hold(t float64) float64 {
	if c.target == nil {
		return c.v
	}
	tc := c.target.TimeConstant
	if tc == 0 {
		return c.target.Value
	}
	return c.target.Value + (c.v-c.target.Value)*math.Exp(-(t-c.t)/tc)
}

type walkResult struct {
	value float64
	cur   cursor
}

// walk evaluates the first n events at time t.
func (tl *Timeline) walk(n int, t float64) walkResult {
	cur := cursor{t: tl.baseTime, v: tl.baseValue}
	for i := range n {
		ev := &tl.events[i]
		switch ev.Kind {
		case LinearRamp, ExponentialRamp:
			t0, v0 := cur.t, cur.v
			if ev.anchored {
				t0, v0 = ev.anchorTime, ev.anchorValue
			}
			if t < ev.Time {
				if t < t0 {
					return walkResult{cur.hold(t), cur}
				}
				return walkResult{ramp(ev, t0, v0, t), cur}
			}
			cur = cursor{t: ev.Time, v: ev.Value}
		case SetValue:
			if t < ev.Time {
				return walkResult{cur.hold(t), cur}
			}
			cur = cursor{t: ev.Time, v: ev.Value}
		case SetTarget:
			if t < ev.Time {
				return walkResult{cur.hold(t), cur}
			}
			cur = cursor{t: ev.Time, v: cur.hold(ev.Time), target: ev}
		case SetValueCurve:
			if t < ev.Time {
				return walkResult{cur.hold(t), cur}
			}
			if t < ev.curveEnd() {
				return walkResult{ev.curveAt(t), cur}
			}
			if ev.cut {
				cur = cursor{t: ev.cutTime, v: ev.cutValue}
			} else {
				cur = cursor{t: ev.Time + ev.Duration, v: ev.Curve[len(ev.Curve)-1]}
			}
		}
	}
	return walkResult{cur.hold(t), cur}
}

func ramp(ev *Event, t0, v0, t float64) float64 {
	t1, v1 := ev.Time, ev.Value
	if t1 <= t0 {
		return v1
	}
	frac := (t - t0) / (t1 - t0)
	if ev.Kind == LinearRamp {
		return v0 + (v1-v0)*frac
	}
	if v0 == 0 || (v0 < 0) != (v1 < 0) {
		return v0
	}
	return v0 * math.Pow(v1/v0, frac)
}
