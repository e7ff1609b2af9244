// SPDX-License-Identifier: MIT
//
// Package render draws a magnitude block as a filled area plot.
package render

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"plotstream/internal/block"
)

// Options describes one render request.
type Options struct {
	Width  uint
	Height uint
	YAuto  bool    // derive the y range from the block
	YMin   float64 // manual y range, used when YAuto is false
	YMax   float64
}

// Meta is the auxiliary display data for a rendered block: the block's
// minimum rounded up and its maximum rounded down.
type Meta struct {
	Min float64
	Max float64
}

// Renderer turns a block into an image. Width and height must be positive;
// implementations panic otherwise.
type Renderer interface {
	Render(b block.Block, opts Options) (image.Image, Meta)
}

// baseline is the value the area fill starts from.
const baseline = -1.0

// Plot is the raster Renderer.
type Plot struct {
	Background color.RGBA
	Grid       color.RGBA
	Fill       color.RGBA
	Text       color.RGBA
	Face       font.Face
}

var _ Renderer = (*Plot)(nil)

// NewPlot returns a plot with the default palette.
func NewPlot() *Plot {
	return &Plot{
		Background: color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff},
		Grid:       color.RGBA{R: 0xe0, G: 0xe0, B: 0xe0, A: 0xff},
		Fill:       color.RGBA{R: 0x1f, G: 0x77, B: 0xb4, A: 0xff},
		Text:       color.RGBA{R: 0x30, G: 0x30, B: 0x30, A: 0xff},
		Face:       basicfont.Face7x13,
	}
}

// MetaOf computes the display meta for b.
func MetaOf(b block.Block) Meta {
	lo, hi := b.MinMax()
	return Meta{Min: math.Ceil(float64(lo)), Max: math.Floor(float64(hi))}
}

// YRange returns the y axis bounds used for b under opts. The range is
// never empty.
func YRange(meta Meta, opts Options) (lo, hi float64) {
	lo, hi = opts.YMin, opts.YMax
	if opts.YAuto {
		lo, hi = meta.Min, meta.Max
	}
	if !(hi > lo) {
		hi = lo + 1
	}
	return lo, hi
}

// Render implements Renderer.
func (p *Plot) Render(b block.Block, opts Options) (image.Image, Meta) {
	if opts.Width == 0 || opts.Height == 0 {
		panic(fmt.Sprintf("render: plot dimensions must be positive, got %dx%d", opts.Width, opts.Height))
	}
	w, h := int(opts.Width), int(opts.Height)
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(p.Background), image.Point{}, draw.Src)

	for i := 1; i < 4; i++ {
		y := i * h / 4
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, p.Grid)
		}
	}

	meta := MetaOf(b)
	if len(b) == 0 {
		return img, meta
	}
	lo, hi := YRange(meta, opts)

	toY := func(v float64) int {
		frac := (v - lo) / (hi - lo)
		y := int(math.Round(float64(h-1) * (1 - frac)))
		return min(max(y, 0), h-1)
	}
	base := toY(baseline)

	for x := 0; x < w; x++ {
		// x axis spans sample indices 0..len-1.
		idx := 0
		if w > 1 {
			idx = x * (len(b) - 1) / (w - 1)
		}
		v := float64(b[idx])
		if math.IsNaN(v) {
			continue
		}
		top := toY(v)
		y0, y1 := min(top, base), max(top, base)
		for y := y0; y <= y1; y++ {
			img.SetRGBA(x, y, p.Fill)
		}
	}

	if p.Face != nil {
		p.label(img, 2, 12, fmt.Sprintf("%g", hi))
		p.label(img, 2, h-3, fmt.Sprintf("%g", lo))
	}
	return img, meta
}

func (p *Plot) label(dst draw.Image, x, y int, s string) {
	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(p.Text),
		Face: p.Face,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

// Levels samples an image produced by Render into cols column heights in
// [0, 1], measured as the filled share of each column. The terminal UI uses
// it to draw a text version of the plot.
func (p *Plot) Levels(img image.Image, cols int) []float64 {
	if img == nil || cols <= 0 {
		return nil
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return make([]float64, cols)
	}
	fr, fg, fb, _ := p.Fill.RGBA()
	out := make([]float64, cols)
	for c := range cols {
		x := bounds.Min.X + c*w/cols
		filled := 0
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			r, g, b, _ := img.At(x, y).RGBA()
			if r == fr && g == fg && b == fb {
				filled++
			}
		}
		out[c] = float64(filled) / float64(h)
	}
	return out
}
