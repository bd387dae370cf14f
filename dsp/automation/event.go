package automation

import (
	"errors"
	"fmt"
	"math"
)

// ErrSchedulingConflict reports an automation event that cannot be scheduled.
var ErrSchedulingConflict = errors.New("automation: scheduling conflict")

// Kind identifies an automation event type.
type Kind int

const (
	// SetValue makes the value exactly Value at and after Time.
	SetValue Kind = iota
	// LinearRamp interpolates linearly from the previous event to Value at Time.
	LinearRamp
	// ExponentialRamp interpolates geometrically from the previous event to
	// Value at Time.
	ExponentialRamp
	// SetTarget approaches Value exponentially from Time with TimeConstant.
	SetTarget
	// SetValueCurve spreads Curve over [Time, Time+Duration) and holds the
	// last point afterwards.
	SetValueCurve
)

var kindNames = [...]string{
	SetValue:        "set-value",
	LinearRamp:      "linear-ramp",
	ExponentialRamp: "exponential-ramp",
	SetTarget:       "set-target",
	SetValueCurve:   "set-value-curve",
}

// String returns the kebab-case name used in patch files.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind is the inverse of [Kind.String].
func ParseKind(s string) (Kind, error) {
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("automation: unknown event kind %q", s)
}

// Event is one scheduled automation instruction.
//
// Curve is retained by the timeline, not copied; callers hand over ownership.
type Event struct {
	Kind         Kind
	Value        float64
	Time         float64
	TimeConstant float64
	Curve        []float64
	Duration     float64

	// A ramp that follows a target approach starts from the point where it
	// was scheduled.
	anchored    bool
	anchorTime  float64
	anchorValue float64

	// A curve cut short by CancelAndHold.
	cut      bool
	cutTime  float64
	cutValue float64
}

func (e *Event) isRamp() bool {
	return e.Kind == LinearRamp || e.Kind == ExponentialRamp
}

func (e *Event) validate() error {
	if !finite(e.Time) || e.Time < 0 {
		return fmt.Errorf("%w: %s time %v", ErrSchedulingConflict, e.Kind, e.Time)
	}
	switch e.Kind {
	case SetValue, LinearRamp:
		if !finite(e.Value) {
			return fmt.Errorf("%w: %s value %v", ErrSchedulingConflict, e.Kind, e.Value)
		}
	case ExponentialRamp:
		if !finite(e.Value) || e.Value == 0 {
			return fmt.Errorf("%w: exponential ramp to %v", ErrSchedulingConflict, e.Value)
		}
	case SetTarget:
		if !finite(e.Value) || !finite(e.TimeConstant) || e.TimeConstant < 0 {
			return fmt.Errorf("%w: target %v with time constant %v",
				ErrSchedulingConflict, e.Value, e.TimeConstant)
		}
	case SetValueCurve:
		if len(e.Curve) < 2 {
			return fmt.Errorf("%w: value curve needs at least 2 points, got %d",
				ErrSchedulingConflict, len(e.Curve))
		}
		if !finite(e.Duration) || e.Duration <= 0 {
			return fmt.Errorf("%w: value curve duration %v", ErrSchedulingConflict, e.Duration)
		}
		for i, v := range e.Curve {
			if !finite(v) {
				return fmt.Errorf("%w: value curve point %d is %v", ErrSchedulingConflict, i, v)
			}
		}
	default:
		return fmt.Errorf("%w: unknown event kind %d", ErrSchedulingConflict, int(e.Kind))
	}
	return nil
}

func (e *Event) curveEnd() float64 {
	if e.cut {
		return e.cutTime
	}
	return e.Time + e.Duration
}

// curveAt interpolates the curve linearly at t in [Time, Time+Duration).
func (e *Event) curveAt(t float64) float64 {
	n := len(e.Curve)
	pos := (t - e.Time) * float64(n-1) / e.Duration
	k := int(math.Floor(pos))
	if k < 0 {
		return e.Curve[0]
	}
	if k >= n-1 {
		return e.Curve[n-1]
	}
	return e.Curve[k] + (e.Curve[k+1]-e.Curve[k])*(pos-float64(k))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
