package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"plotstream/internal/render"
	"plotstream/internal/ui"
)

// Program runs the terminal UI and implements ui.Handle for it.
type Program struct {
	prog *tea.Program
	done chan struct{}
}

var _ ui.Handle = (*Program)(nil)

// NewProgram prepares the terminal UI for win. Extra options are passed to
// Bubble Tea (tests use them to detach from the terminal).
func NewProgram(win *ui.Window, plot *render.Plot, opts ...tea.ProgramOption) *Program {
	return &Program{
		prog: tea.NewProgram(NewModel(win, plot), opts...),
		done: make(chan struct{}),
	}
}

// Run blocks until the user quits or Quit is called.
func (p *Program) Run() error {
	defer close(p.done)
	_, err := p.prog.Run()
	return err
}

// Post implements ui.Handle.
func (p *Program) Post(task ui.Task) error {
	select {
	case <-p.done:
		return ui.ErrGone
	default:
	}
	// Send returns without delivering once the program has exited.
	p.prog.Send(taskMsg{task: task})
	return nil
}

// Done implements ui.Handle.
func (p *Program) Done() <-chan struct{} { return p.done }

// Quit asks the program to exit.
func (p *Program) Quit() { p.prog.Quit() }
