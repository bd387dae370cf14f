package buffer

import "github.com/cwbudde/algo-vecmath"

// Block holds one render quantum of planar samples.
//
// The frame count is fixed. The active channel count can change between
// quantums; channel slices are kept once allocated so shrinking and growing
// back does not allocate.
type Block struct {
	data     [][]float64
	channels int
	frames   int
}

// NewBlock returns a zero-filled Block with the given channel and frame counts.
// Negative counts are treated as zero, and at least one channel is kept.
func NewBlock(channels, frames int) *Block {
	if frames < 0 {
		frames = 0
	}
	if channels < 1 {
		channels = 1
	}
	b := &Block{frames: frames}
	b.SetChannels(channels)
	return b
}

// Frames returns the fixed number of frames per channel.
func (b *Block) Frames() int {
	return b.frames
}

// Channels returns the active channel count.
func (b *Block) Channels() int {
	return b.channels
}

// SetChannels changes the active channel count. Newly exposed channels are
// zeroed. Channels beyond the previously allocated capacity are allocated once.
func (b *Block) SetChannels(n int) {
	if n < 1 {
		n = 1
	}
	for len(b.data) < n {
		b.data = append(b.data, make([]float64, b.frames))
	}
	for ch := b.channels; ch < n; ch++ {
		zero(b.data[ch])
	}
	b.channels = n
}

// Channel returns the samples of channel ch. The slice aliases block storage.
func (b *Block) Channel(ch int) []float64 {
	return b.data[ch]
}

// Zero sets every active sample to 0.
func (b *Block) Zero() {
	for ch := 0; ch < b.channels; ch++ {
		zero(b.data[ch])
	}
}

// MakeSilent resets the block to one silent channel.
func (b *Block) MakeSilent() {
	b.channels = 1
	zero(b.data[0])
}

// IsSilent reports whether every active sample is exactly 0.
func (b *Block) IsSilent() bool {
	for ch := 0; ch < b.channels; ch++ {
		for _, v := range b.data[ch] {
			if v != 0 {
				return false
			}
		}
	}
	return true
}

// CopyFrom copies the channel layout and samples of src. Both blocks must
// have the same frame count.
func (b *Block) CopyFrom(src *Block) {
	b.SetChannels(src.channels)
	for ch := 0; ch < src.channels; ch++ {
		copy(b.data[ch], src.data[ch])
	}
}

// Add accumulates src into b channel by channel. Channels missing on either
// side are skipped; use [MixInto] for layout conversion.
func (b *Block) Add(src *Block) {
	n := min(b.channels, src.channels)
	for ch := 0; ch < n; ch++ {
		vecmath.AddBlockInPlace(b.data[ch], src.data[ch])
	}
}

func zero(s []float64) {
	for i := range s {
		s[i] = 0
	}
}
