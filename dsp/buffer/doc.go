// Package buffer provides the sample containers shared by the render engine:
// a fixed-size multi-channel [Block] holding one render quantum, a render-side
// [Pool] of blocks, channel up/down mixing, and the immutable decoded
// [AudioBuffer] read by buffer sources.
//
// Blocks are planar float64. Their frame count is fixed at construction so a
// block can be reused across quantums without reallocation; only the active
// channel count changes.
package buffer
