// Package interp provides fractional-position interpolation primitives used
// by delay lines and sample playback.
//
//   - [Linear]:   2-point linear interpolation
//   - [Hermite4]: 4-point cubic Hermite
//
// [Mode] selects between them at construction time.
package interp
