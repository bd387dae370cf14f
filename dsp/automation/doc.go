// Package automation evaluates AudioParam automation timelines.
//
// A [Timeline] is a pure value-at-time function: a default value plus a
// time-ordered list of [Event]s (set, linear ramp, exponential ramp, target
// approach, value curve). It knows nothing about graphs or threads; the
// control side keeps one copy to validate scheduling calls and the render side
// keeps another that it evaluates once per frame (a-rate) or once per quantum
// (k-rate).
//
// Insertion rules:
//
//   - event times earlier than the caller's current time are clamped to it;
//   - an event at the same time and of the same kind as an existing event
//     replaces it, otherwise it is placed after the events already at that
//     time;
//   - value curves may not overlap any other event;
//   - exponential ramps need non-zero start and end values of the same sign,
//     including when a later insertion changes a ramp's starting point.
//
// [Timeline.CancelAndHold] removes every event strictly after the cancel time
// and holds the value the timeline had at that time.
package automation
