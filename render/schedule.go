package render

import (
	"fmt"
	"math"
)

// schedule is the start/stop state shared by source processors.
//
// A source is active for start <= t < stop. A stop time before the start time
// ends the source at its start time without output.
type schedule struct {
	start   float64
	stop    float64
	started bool
	ended   bool
}

func (s *schedule) setStart(when float64) error {
	if s.started {
		return fmt.Errorf("%w: source already started", ErrInvalidState)
	}
	if when < 0 || math.IsNaN(when) {
		return fmt.Errorf("%w: start time %v", ErrInvalidState, when)
	}
	s.started = true
	s.start = when
	s.stop = math.Inf(1)
	return nil
}

func (s *schedule) setStop(when float64) error {
	if !s.started {
		return fmt.Errorf("%w: source stopped before it was started", ErrInvalidState)
	}
	if when < 0 || math.IsNaN(when) {
		return fmt.Errorf("%w: stop time %v", ErrInvalidState, when)
	}
	s.stop = when
	return nil
}

// waiting reports whether t precedes playback.
func (s *schedule) waiting(t float64) bool {
	return !s.started || t < s.start
}

// expired reports whether playback is over at t. Only meaningful once t has
// reached the start time.
func (s *schedule) expired(t float64) bool {
	return t >= s.stop
}

// end marks the source ended and stages its Ended event.
func (s *schedule) end(scope *Scope) {
	if s.ended {
		return
	}
	s.ended = true
	scope.Stage(EventEnded)
	scope.Finish()
}

// pending reports whether the source still has scheduled activity.
func (s *schedule) pending() bool {
	return s.started && !s.ended
}
