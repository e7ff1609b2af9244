package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plotstream/internal/block"
	"plotstream/internal/render"
	"plotstream/internal/ui"
)

func press(m tea.Model, keys string) tea.Model {
	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)})
	return m
}

func TestModel_Keys(t *testing.T) {
	w := &ui.Window{PlotWidth: 32, PlotHeight: 16}
	var toggles []bool
	w.OnPlotEnableToggled = func(on bool) { toggles = append(toggles, on) }

	var m tea.Model = NewModel(w, render.NewPlot())
	m = press(m, "p")
	assert.True(t, w.PlotEnabled)
	m = press(m, "+")
	m = press(m, "+")
	m = press(m, "-")
	assert.Equal(t, 1, w.Noise)
	m = press(m, "a")
	assert.True(t, w.YAutoUpdate)
	m = press(m, "p")
	assert.Equal(t, []bool{true, false}, toggles)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_NoiseNeverNegative(t *testing.T) {
	w := &ui.Window{}
	m := press(NewModel(w, render.NewPlot()), "-")
	press(m, "-")
	assert.Zero(t, w.Noise)
}

func TestModel_TaskAndView(t *testing.T) {
	w := &ui.Window{PlotWidth: 64, PlotHeight: 32, YAutoUpdate: true}
	plot := render.NewPlot()
	var m tea.Model = NewModel(w, plot)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 40, Height: 16})

	assert.Contains(t, m.View(), "(plot disabled)")

	b := make(block.Block, 64)
	for i := 32; i < 64; i++ {
		b[i] = 50
	}
	m, _ = m.Update(taskMsg{task: func(w *ui.Window) {
		w.SetPlotEnabled(true)
		img, meta := plot.Render(b, w.PlotOptions())
		w.PlotFrame, w.Meta = img, meta
		w.Frames++
	}})

	view := m.View()
	assert.Contains(t, view, "frames 1")
	assert.Contains(t, view, "max 50")
	assert.True(t, strings.ContainsRune(view, '█'))
}
