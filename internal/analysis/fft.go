// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"math/cmplx"
	"strings"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"plotstream/internal/block"
	"plotstream/internal/log"
	"plotstream/pkg/bitint"
)

// WindowFunc defines the type for selecting an FFT window function.
type WindowFunc int

// Enum for available window functions. None leaves the input untouched,
// which is what the live spectrum uses.
const (
	None WindowFunc = iota
	BartlettHann
	Blackman
	BlackmanNuttall
	Hann
	Hamming
	Lanczos
	Nuttall
)

// Transform is a forward complex FFT over a fixed block length. It is
// unnormalised: a unit complex exponential that falls exactly on bin k
// yields |X[k]| == size.
//
// A Transform owns scratch buffers and must only be used from one goroutine.
type Transform struct {
	fft     *fourier.CmplxFFT
	size    int
	shift   bool
	window  []float64 // nil when no window is applied.
	scratch []complex128
	coeffs  []complex128
}

// NewTransform creates a Transform of the given size, which must be a power
// of two. With shift set the zero-frequency bin is moved to the centre.
func NewTransform(size int, windowType WindowFunc, shift bool) (*Transform, error) {
	if !bitint.IsPowerOfTwo(size) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", size)
	}

	t := &Transform{
		fft:     fourier.NewCmplxFFT(size),
		size:    size,
		shift:   shift,
		scratch: make([]complex128, size),
		coeffs:  make([]complex128, size),
	}
	if windowType != None {
		t.window = make([]float64, size)
		applyWindow(t.window, windowType)
	}

	log.Debugf("analysis: transform ready (size %d, window %v, shift %v)", size, windowType, shift)
	return t, nil
}

// Size returns the block length.
func (t *Transform) Size() int { return t.size }

// Forward computes the spectrum of frame into dst, allocating dst when it is
// nil or the wrong length. frame must hold exactly Size samples.
func (t *Transform) Forward(dst, frame []complex128) ([]complex128, error) {
	if len(frame) != t.size {
		return nil, fmt.Errorf("frame length %d does not match fft size %d", len(frame), t.size)
	}
	if len(dst) != t.size {
		dst = make([]complex128, t.size)
	}

	in := frame
	if t.window != nil {
		for i, v := range frame {
			t.scratch[i] = v * complex(t.window[i], 0)
		}
		in = t.scratch
	}

	if !t.shift {
		t.fft.Coefficients(dst, in)
		return dst, nil
	}

	t.fft.Coefficients(t.coeffs, in)
	half := t.size / 2
	copy(dst, t.coeffs[half:])
	copy(dst[t.size-half:], t.coeffs[:half])
	return dst, nil
}

// Magnitude converts a spectrum to a block of |z| values.
func Magnitude(spectrum []complex128) block.Block {
	out := make(block.Block, len(spectrum))
	for i, c := range spectrum {
		out[i] = float32(cmplx.Abs(c))
	}
	return out
}

// BinFrequency returns the centre frequency (Hz) of an unshifted bin.
func BinFrequency(bin, size int, sampleRate float64) float64 {
	if bin < 0 || bin >= size || size == 0 {
		return 0
	}
	return float64(bin) * sampleRate / float64(size)
}

// String returns the lowercase window name.
func (w WindowFunc) String() string {
	switch w {
	case None:
		return "none"
	case BartlettHann:
		return "bartletthann"
	case Blackman:
		return "blackman"
	case BlackmanNuttall:
		return "blackmannuttall"
	case Hann:
		return "hann"
	case Hamming:
		return "hamming"
	case Lanczos:
		return "lanczos"
	case Nuttall:
		return "nuttall"
	default:
		return fmt.Sprintf("window(%d)", int(w))
	}
}

// ParseWindowFunc converts a string name (case-insensitive) to a WindowFunc.
// An empty name means None; an unknown one returns None and an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "", "none", "rectangular":
		return None, nil
	case "bartletthann":
		return BartlettHann, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "lanczos":
		return Lanczos, nil
	case "nuttall":
		return Nuttall, nil
	default:
		return None, fmt.Errorf("unknown FFT window function name: '%s'", name)
	}
}

// applyWindow fills coeffs with the selected window.
func applyWindow(coeffs []float64, windowType WindowFunc) {
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case BartlettHann:
		window.BartlettHann(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Hann:
		window.Hann(coeffs)
	case Hamming:
		window.Hamming(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	}
}
