package automation

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTimeline() *Timeline {
	return New(1, math.Inf(-1), math.Inf(1))
}

func TestValueBeforeFirstEventIsDefault(t *testing.T) {
	tl := New(0.25, -10, 10)
	require.NoError(t, tl.Insert(Event{Kind: SetValue, Value: 3, Time: 2}, 0))

	assert.Equal(t, 0.25, tl.ValueAt(0))
	assert.Equal(t, 0.25, tl.ValueAt(1.999))
	assert.Equal(t, 3.0, tl.ValueAt(2))
	assert.Equal(t, 3.0, tl.ValueAt(100))
}

func TestLinearRamp(t *testing.T) {
	tl := newTimeline()
	require.NoError(t, tl.Insert(Event{Kind: SetValue, Value: 0, Time: 1}, 0))
	require.NoError(t, tl.Insert(Event{Kind: LinearRamp, Value: 10, Time: 2}, 0))

	assert.Equal(t, 1.0, tl.ValueAt(0.5))
	assert.InDelta(t, 0.0, tl.ValueAt(1), 1e-12)
	assert.InDelta(t, 2.5, tl.ValueAt(1.25), 1e-12)
	assert.InDelta(t, 10.0, tl.ValueAt(2), 1e-12)
	assert.InDelta(t, 10.0, tl.ValueAt(3), 1e-12)
}

func TestLinearRampFromDefaultAtTimeZero(t *testing.T) {
	tl := New(0, -1, 1)
	require.NoError(t, tl.Insert(Event{Kind: LinearRamp, Value: 1, Time: 4}, 0))
	assert.InDelta(t, 0.25, tl.ValueAt(1), 1e-12)
}

func TestExponentialRamp(t *testing.T) {
	tl := newTimeline()
	require.NoError(t, tl.Insert(Event{Kind: SetValue, Value: 1, Time: 0}, 0))
	require.NoError(t, tl.Insert(Event{Kind: ExponentialRamp, Value: 100, Time: 2}, 0))

	assert.InDelta(t, 10.0, tl.ValueAt(1), 1e-9)
	assert.InDelta(t, 100.0, tl.ValueAt(2), 1e-9)
}

func TestExponentialRampConflicts(t *testing.T) {
	tests := []struct {
		name  string
		setup []Event
		ramp  Event
	}{
		{
			name: "zero target",
			ramp: Event{Kind: ExponentialRamp, Value: 0, Time: 1},
		},
		{
			name:  "zero start",
			setup: []Event{{Kind: SetValue, Value: 0, Time: 0}},
			ramp:  Event{Kind: ExponentialRamp, Value: 1, Time: 1},
		},
		{
			name:  "sign mismatch",
			setup: []Event{{Kind: SetValue, Value: -1, Time: 0}},
			ramp:  Event{Kind: ExponentialRamp, Value: 1, Time: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tl := newTimeline()
			for _, ev := range tt.setup {
				require.NoError(t, tl.Insert(ev, 0))
			}
			before := tl.Len()
			err := tl.Insert(tt.ramp, 0)
			assert.True(t, errors.Is(err, ErrSchedulingConflict), "got %v", err)
			assert.Equal(t, before, tl.Len(), "rejected event must not be kept")
		})
	}
}

func TestInsertRejectedWhenItBreaksLaterExponentialRamp(t *testing.T) {
	tl := newTimeline()
	require.NoError(t, tl.Insert(Event{Kind: ExponentialRamp, Value: 2, Time: 2}, 0))

	err := tl.Insert(Event{Kind: SetValue, Value: 0, Time: 1}, 0)
	assert.True(t, errors.Is(err, ErrSchedulingConflict))
	assert.Equal(t, 1, tl.Len())
}

func TestSetTarget(t *testing.T) {
	tl := New(0, -10, 10)
	require.NoError(t, tl.Insert(Event{Kind: SetTarget, Value: 1, Time: 1, TimeConstant: 0.5}, 0))

	assert.Equal(t, 0.0, tl.ValueAt(0.5))
	assert.Equal(t, 0.0, tl.ValueAt(1))
	assert.InDelta(t, 1-math.Exp(-1), tl.ValueAt(1.5), 1e-12)
	assert.Less(t, tl.ValueAt(20), 1.0+1e-12)
}

func TestSetTargetZeroTimeConstantJumps(t *testing.T) {
	tl := New(0, -10, 10)
	require.NoError(t, tl.Insert(Event{Kind: SetTarget, Value: 4, Time: 1}, 0))
	assert.Equal(t, 4.0, tl.ValueAt(1))
}

func TestRampAfterTargetIsAnchoredAtScheduleTime(t *testing.T) {
	tl := New(0, -10, 10)
	require.NoError(t, tl.Insert(Event{Kind: SetTarget, Value: 1, Time: 0, TimeConstant: 1}, 0))
	now := 1.0
	start := tl.ValueAt(now)
	require.NoError(t, tl.Insert(Event{Kind: LinearRamp, Value: 0, Time: 2}, now))

	assert.InDelta(t, 1-math.Exp(-0.5), tl.ValueAt(0.5), 1e-12, "target still runs before the anchor")
	assert.InDelta(t, start, tl.ValueAt(1), 1e-12)
	assert.InDelta(t, start/2, tl.ValueAt(1.5), 1e-12)
	assert.InDelta(t, 0, tl.ValueAt(2), 1e-12)
}

func TestSetValueCurve(t *testing.T) {
	tl := newTimeline()
	curve := []float64{0, 1, 0.5}
	require.NoError(t, tl.Insert(Event{Kind: SetValueCurve, Curve: curve, Time: 1, Duration: 2}, 0))

	assert.Equal(t, 1.0, tl.ValueAt(0.5))
	assert.InDelta(t, 0.0, tl.ValueAt(1), 1e-12)
	assert.InDelta(t, 0.5, tl.ValueAt(1.5), 1e-12)
	assert.InDelta(t, 1.0, tl.ValueAt(2), 1e-12)
	assert.InDelta(t, 0.75, tl.ValueAt(2.5), 1e-12)
	assert.InDelta(t, 0.5, tl.ValueAt(3), 1e-12)
	assert.InDelta(t, 0.5, tl.ValueAt(10), 1e-12)
}

func TestSetValueCurveOverlap(t *testing.T) {
	tl := newTimeline()
	require.NoError(t, tl.Insert(Event{Kind: SetValueCurve, Curve: []float64{0, 1}, Time: 1, Duration: 1}, 0))

	err := tl.Insert(Event{Kind: SetValue, Value: 2, Time: 1.5}, 0)
	assert.True(t, errors.Is(err, ErrSchedulingConflict))

	err = tl.Insert(Event{Kind: SetValueCurve, Curve: []float64{0, 1}, Time: 0.5, Duration: 1}, 0)
	assert.True(t, errors.Is(err, ErrSchedulingConflict))

	assert.NoError(t, tl.Insert(Event{Kind: SetValue, Value: 2, Time: 2}, 0), "curve end is exclusive")
}

func TestSameKindSameTimeReplaces(t *testing.T) {
	tl := newTimeline()
	require.NoError(t, tl.Insert(Event{Kind: SetValue, Value: 1, Time: 1}, 0))
	require.NoError(t, tl.Insert(Event{Kind: SetValue, Value: 5, Time: 1}, 0))

	require.Equal(t, 1, tl.Len())
	assert.Equal(t, 5.0, tl.ValueAt(1))
}

func TestDifferentKindSameTimeAppends(t *testing.T) {
	tl := newTimeline()
	require.NoError(t, tl.Insert(Event{Kind: SetValue, Value: 1, Time: 1}, 0))
	require.NoError(t, tl.Insert(Event{Kind: LinearRamp, Value: 3, Time: 1}, 0))

	events := tl.Events()
	require.Len(t, events, 2)
	assert.Equal(t, SetValue, events[0].Kind)
	assert.Equal(t, LinearRamp, events[1].Kind)
	assert.Equal(t, 3.0, tl.ValueAt(1))
}

func TestPastEventsClampToNow(t *testing.T) {
	tl := newTimeline()
	require.NoError(t, tl.Insert(Event{Kind: SetValue, Value: 7, Time: 0.5}, 2))
	assert.Equal(t, 2.0, tl.Events()[0].Time)
	assert.Equal(t, 1.0, tl.ValueAt(1))
}

func TestInvalidEvents(t *testing.T) {
	tests := []Event{
		{Kind: SetValue, Value: math.NaN(), Time: 0},
		{Kind: SetValue, Value: 1, Time: -1},
		{Kind: SetTarget, Value: 1, Time: 0, TimeConstant: -1},
		{Kind: SetValueCurve, Curve: []float64{1}, Time: 0, Duration: 1},
		{Kind: SetValueCurve, Curve: []float64{1, 2}, Time: 0, Duration: 0},
		{Kind: Kind(42), Time: 0},
	}
	for _, ev := range tests {
		t.Run(ev.Kind.String(), func(t *testing.T) {
			err := newTimeline().Insert(ev, 0)
			assert.True(t, errors.Is(err, ErrSchedulingConflict))
		})
	}
}

func TestCancelScheduledValues(t *testing.T) {
	tl := newTimeline()
	require.NoError(t, tl.Insert(Event{Kind: SetValue, Value: 2, Time: 1}, 0))
	require.NoError(t, tl.Insert(Event{Kind: SetValue, Value: 3, Time: 2}, 0))
	require.NoError(t, tl.Insert(Event{Kind: SetValue, Value: 4, Time: 3}, 0))

	tl.CancelScheduledValues(2)
	assert.Equal(t, 1, tl.Len())
	assert.Equal(t, 2.0, tl.ValueAt(5))
}

func TestCancelAndHoldTruncatesRamp(t *testing.T) {
	tl := newTimeline()
	require.NoError(t, tl.Insert(Event{Kind: SetValue, Value: 0, Time: 0}, 0))
	require.NoError(t, tl.Insert(Event{Kind: LinearRamp, Value: 10, Time: 10}, 0))
	require.NoError(t, tl.Insert(Event{Kind: SetValue, Value: 99, Time: 20}, 0))

	tl.CancelAndHold(5)

	assert.InDelta(t, 2.5, tl.ValueAt(2.5), 1e-12, "ramp shape kept before the hold")
	assert.InDelta(t, 5, tl.ValueAt(5), 1e-12)
	assert.InDelta(t, 5, tl.ValueAt(30), 1e-12, "later events are gone")
}

func TestCancelAndHoldFreezesTarget(t *testing.T) {
	tl := New(0, -10, 10)
	require.NoError(t, tl.Insert(Event{Kind: SetTarget, Value: 1, Time: 0, TimeConstant: 1}, 0))
	held := tl.ValueAt(1)

	tl.CancelAndHold(1)
	assert.InDelta(t, held, tl.ValueAt(1), 1e-12)
	assert.InDelta(t, held, tl.ValueAt(50), 1e-12)
}

func TestCancelAndHoldCutsCurve(t *testing.T) {
	tl := newTimeline()
	require.NoError(t, tl.Insert(Event{Kind: SetValueCurve, Curve: []float64{0, 4}, Time: 0, Duration: 4}, 0))

	tl.CancelAndHold(1)
	assert.InDelta(t, 0.5, tl.ValueAt(0.5), 1e-12)
	assert.InDelta(t, 1, tl.ValueAt(1), 1e-12)
	assert.InDelta(t, 1, tl.ValueAt(3), 1e-12)
	assert.NoError(t, tl.Insert(Event{Kind: SetValue, Value: 2, Time: 2}, 0), "cut curve frees its tail")
}

func TestAdvanceKeepsFutureValues(t *testing.T) {
	tl := New(0, -100, 100)
	require.NoError(t, tl.Insert(Event{Kind: SetValue, Value: 1, Time: 0}, 0))
	require.NoError(t, tl.Insert(Event{Kind: SetTarget, Value: 5, Time: 1, TimeConstant: 2}, 0))
	require.NoError(t, tl.Insert(Event{Kind: LinearRamp, Value: -3, Time: 4}, 0))
	require.NoError(t, tl.Insert(Event{Kind: ExponentialRamp, Value: -1, Time: 6}, 0))

	probe := []float64{3, 3.5, 4, 5, 6, 7}
	want := make([]float64, len(probe))
	for i, p := range probe {
		want[i] = tl.ValueAt(p)
	}

	for _, now := range []float64{1, 2, 3, 4.5, 7} {
		tl.Advance(now)
		for i, p := range probe {
			if p >= now {
				assert.InDelta(t, want[i], tl.ValueAt(p), 1e-12, "now=%v t=%v", now, p)
			}
		}
	}
	assert.Equal(t, 0, tl.Len())
	assert.InDelta(t, -1, tl.ValueAt(8), 1e-12)
}

func TestSetValueWithoutEventsUpdatesBase(t *testing.T) {
	tl := newTimeline()
	require.NoError(t, tl.SetValue(0.3, 1))
	assert.Equal(t, 0, tl.Len())
	assert.Equal(t, 0.3, tl.ValueAt(1))

	require.NoError(t, tl.Insert(Event{Kind: SetValue, Value: 2, Time: 3}, 1))
	require.NoError(t, tl.SetValue(4, 5))
	assert.Equal(t, 4.0, tl.ValueAt(5))
	assert.Error(t, tl.SetValue(math.Inf(1), 5))
}

func TestFillClampsToRange(t *testing.T) {
	tl := New(0, -1, 1)
	require.NoError(t, tl.Insert(Event{Kind: LinearRamp, Value: 4, Time: 4}, 0))

	dst := make([]float64, 5)
	tl.Fill(dst, 0, 1)
	assert.InDeltaSlice(t, []float64{0, 1, 1, 1, 1}, dst, 1e-12)
}

func TestKindNames(t *testing.T) {
	for k := SetValue; k <= SetValueCurve; k++ {
		parsed, err := ParseKind(k.String())
		require.NoError(t, err)
		assert.Equal(t, k, parsed)
	}
	_, err := ParseKind("bogus")
	assert.Error(t, err)
}

func TestCloneIsIndependent(t *testing.T) {
	tl := newTimeline()
	require.NoError(t, tl.Insert(Event{Kind: LinearRamp, Value: 3, Time: 2}, 0))

	c := tl.Clone()
	require.NoError(t, c.Insert(Event{Kind: SetValue, Value: 10, Time: 4}, 0))
	c.CancelScheduledValues(1)

	assert.Equal(t, 1, tl.Len())
	assert.Equal(t, 2.0, tl.ValueAt(1))
	assert.Equal(t, 0, c.Len())
	assert.Equal(t, 1.0, c.ValueAt(1))
}
