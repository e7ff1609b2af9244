// SPDX-License-Identifier: MIT
package analysis

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// NoiseMode selects which parts of a complex sample receive noise.
type NoiseMode int

const (
	// Complex perturbs real and imaginary parts independently.
	Complex NoiseMode = iota
	// Real perturbs only the real part.
	Real
)

// ParseNoiseMode maps "complex" (or "") and "real" to a NoiseMode.
func ParseNoiseMode(s string) (NoiseMode, bool) {
	switch s {
	case "", "complex":
		return Complex, true
	case "real":
		return Real, true
	default:
		return Complex, false
	}
}

// Noise adds uniform noise in [-gain, gain] to each sample. It is not safe
// for concurrent use; the owning stage changes the gain between frames.
type Noise struct {
	mode NoiseMode
	gain float32
	dist distuv.Uniform
	src  rand.Source
}

// NewNoise seeds a PCG source so runs with the same seed are identical.
func NewNoise(gain float32, mode NoiseMode, seed uint64) *Noise {
	n := &Noise{mode: mode, src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
	n.SetGain(gain)
	return n
}

// Gain returns the current gain.
func (n *Noise) Gain() float32 { return n.gain }

// SetGain changes the noise amplitude. Negative values are folded to their
// magnitude.
func (n *Noise) SetGain(g float32) {
	if g < 0 {
		g = -g
	}
	n.gain = g
	n.dist = distuv.Uniform{Min: -float64(g), Max: float64(g), Src: n.src}
}

// Apply perturbs frame in place. A zero gain leaves it untouched and draws
// nothing from the source.
func (n *Noise) Apply(frame []complex128) {
	if n.gain == 0 {
		return
	}
	for i, v := range frame {
		re := real(v) + n.dist.Rand()
		im := imag(v)
		if n.mode == Complex {
			im += n.dist.Rand()
		}
		frame[i] = complex(re, im)
	}
}
