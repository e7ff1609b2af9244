// SPDX-License-Identifier: MIT
package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plotstream/internal/block"
)

func TestRender_PanicsOnZeroDimension(t *testing.T) {
	p := NewPlot()
	assert.Panics(t, func() { p.Render(block.Block{1}, Options{Width: 0, Height: 10}) })
	assert.Panics(t, func() { p.Render(block.Block{1}, Options{Width: 10, Height: 0}) })
}

func TestRender_Meta(t *testing.T) {
	p := NewPlot()
	img, meta := p.Render(block.Block{0.4, 3.7, 12.9, -2.5}, Options{Width: 40, Height: 20, YAuto: true})

	require.NotNil(t, img)
	assert.Equal(t, 40, img.Bounds().Dx())
	assert.Equal(t, 20, img.Bounds().Dy())
	assert.Equal(t, Meta{Min: -2, Max: 12}, meta)
}

func TestRender_EmptyAndFlat(t *testing.T) {
	p := NewPlot()
	img, meta := p.Render(block.Block{}, Options{Width: 8, Height: 8, YAuto: true})
	assert.NotNil(t, img)
	assert.Equal(t, Meta{}, meta)

	assert.NotPanics(t, func() {
		p.Render(block.Block{5, 5, 5}, Options{Width: 8, Height: 8, YAuto: true})
	})
}

func TestYRange(t *testing.T) {
	meta := Meta{Min: 2, Max: 10}

	lo, hi := YRange(meta, Options{YAuto: true, YMin: -100, YMax: 100})
	assert.Equal(t, 2.0, lo)
	assert.Equal(t, 10.0, hi)

	lo, hi = YRange(meta, Options{YMin: 0, YMax: 600})
	assert.Equal(t, 0.0, lo)
	assert.Equal(t, 600.0, hi)

	lo, hi = YRange(Meta{Min: 3, Max: 3}, Options{YAuto: true})
	assert.Equal(t, 3.0, lo)
	assert.Equal(t, 4.0, hi)
}

func TestLevels(t *testing.T) {
	p := NewPlot()
	p.Face = nil
	b := make(block.Block, 64)
	for i := 32; i < 64; i++ {
		b[i] = 100
	}
	img, _ := p.Render(b, Options{Width: 64, Height: 32, YMin: -1, YMax: 100})

	levels := p.Levels(img, 8)
	require.Len(t, levels, 8)
	assert.Less(t, levels[0], 0.2)
	assert.Greater(t, levels[7], 0.9)

	assert.Nil(t, p.Levels(nil, 4))
}
