// Package block defines the unit of transfer between a sample producer and
// the renderer: a fixed-length run of float32 magnitudes.
package block

import "math"

// Block is one fixed-length unit of magnitude samples. A block is immutable
// once produced and ownership moves with it; senders must not touch a block
// after handing it off.
type Block []float32

// MinMax returns the smallest and largest finite values in the block. An
// empty block, or one holding only NaNs, reports (0, 0).
func (b Block) MinMax() (lo, hi float32) {
	first := true
	for _, v := range b {
		if math.IsNaN(float64(v)) {
			continue
		}
		if first {
			lo, hi = v, v
			first = false
			continue
		}
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// Peak returns the index of the largest value, or -1 for an empty block.
func (b Block) Peak() int {
	idx := -1
	var best float32
	for i, v := range b {
		if idx < 0 || v > best {
			idx, best = i, v
		}
	}
	return idx
}

// Clone returns a copy that the caller owns.
func (b Block) Clone() Block {
	if b == nil {
		return nil
	}
	out := make(Block, len(b))
	copy(out, b)
	return out
}
