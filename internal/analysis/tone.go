package analysis

import (
	"fmt"
	"math"
)

// Tone generates a unit complex exponential e^(j*2*pi*f*n/fs). The phase is
// derived from an integer sample counter so output is reproducible no
// matter how it is split into frames.
type Tone struct {
	frequency  float64
	sampleRate float64
	n          int64
}

// NewTone returns a generator for frequency Hz at sampleRate samples/s.
func NewTone(frequency, sampleRate float64) (*Tone, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}
	return &Tone{frequency: frequency, sampleRate: sampleRate}, nil
}

// Fill writes the next len(dst) samples.
func (t *Tone) Fill(dst []complex128) {
	for i := range dst {
		// Reduce before scaling by 2*pi to keep precision as n grows.
		cycles := math.Mod(t.frequency*float64(t.n), t.sampleRate) / t.sampleRate
		s, c := math.Sincos(2 * math.Pi * cycles)
		dst[i] = complex(c, s)
		t.n++
	}
}

// Next allocates and returns the next frame of size samples.
func (t *Tone) Next(size int) []complex128 {
	frame := make([]complex128, size)
	t.Fill(frame)
	return frame
}
