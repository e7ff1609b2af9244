// Package tui is the terminal front-end. Its Bubble Tea program is the
// window's cooperative UI loop: background work reaches the window only by
// posting tasks, which the program runs in order between key presses.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"plotstream/internal/render"
	"plotstream/internal/ui"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A0A0A0"))

	highlightStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#25A065")).
			Bold(true)

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#1F77B4"))
)

// bars are the glyphs used for one text row of the spectrum, lowest first.
var bars = []rune(" ▁▂▃▄▅▆▇█")

type keyMap struct {
	Toggle    key.Binding
	NoiseUp   key.Binding
	NoiseDown key.Binding
	AutoScale key.Binding
	Quit      key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.NoiseUp, k.NoiseDown, k.AutoScale, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Toggle:    key.NewBinding(key.WithKeys("p", " "), key.WithHelp("p", "plot on/off")),
	NoiseUp:   key.NewBinding(key.WithKeys("+", "=", "up"), key.WithHelp("+", "noise up")),
	NoiseDown: key.NewBinding(key.WithKeys("-", "down"), key.WithHelp("-", "noise down")),
	AutoScale: key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "auto y")),
	Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// taskMsg carries a posted task into the program's update loop.
type taskMsg struct{ task ui.Task }

// Model renders the window and applies key presses to it.
type Model struct {
	win   *ui.Window
	plot  *render.Plot
	help  help.Model
	width int
	rows  int
}

// NewModel returns a model for win. plot is used to turn rendered frames
// back into text bars.
func NewModel(win *ui.Window, plot *render.Plot) Model {
	return Model{win: win, plot: plot, help: help.New(), width: 64, rows: 8}
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case taskMsg:
		msg.task(m.win)

	case tea.WindowSizeMsg:
		m.width = max(msg.Width-2, 8)
		m.rows = max(msg.Height-8, 2)
		m.help.Width = msg.Width

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Toggle):
			m.win.SetPlotEnabled(!m.win.PlotEnabled)
		case key.Matches(msg, keys.NoiseUp):
			m.win.SetNoise(m.win.Noise + 1)
		case key.Matches(msg, keys.NoiseDown):
			m.win.SetNoise(m.win.Noise - 1)
		case key.Matches(msg, keys.AutoScale):
			m.win.YAutoUpdate = !m.win.YAutoUpdate
		}
	}
	return m, nil
}

func (m Model) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("plotstream"))
	sb.WriteString("\n\n")

	state := infoStyle.Render("off")
	if m.win.PlotEnabled {
		state = highlightStyle.Render("on")
	}
	yMode := "manual"
	if m.win.YAutoUpdate {
		yMode = "auto"
	}
	fmt.Fprintf(&sb, "plot %s  noise %d (gain %.1f)  y %s  min %g  max %g  frames %d\n\n",
		state, m.win.Noise, m.win.Gain(), yMode, m.win.Meta.Min, m.win.Meta.Max, m.win.Frames)

	if m.win.PlotEnabled && m.win.PlotFrame != nil {
		sb.WriteString(barStyle.Render(m.chart()))
	} else {
		sb.WriteString(infoStyle.Render(strings.Repeat("\n", m.rows-1) + "(plot disabled)"))
	}
	sb.WriteString("\n\n")
	sb.WriteString(m.help.View(keys))
	return sb.String()
}

// chart draws the last frame as rows of block glyphs.
func (m Model) chart() string {
	levels := m.plot.Levels(m.win.PlotFrame, m.width)
	steps := len(bars) - 1
	lines := make([]string, m.rows)
	for r := range m.rows {
		// r counts rows from the top; each row covers steps sub-levels.
		floor := (m.rows - 1 - r) * steps
		line := make([]rune, len(levels))
		for c, lv := range levels {
			n := int(lv*float64(m.rows*steps)+0.5) - floor
			line[c] = bars[min(max(n, 0), steps)]
		}
		lines[r] = string(line)
	}
	return strings.Join(lines, "\n")
}
