package ui

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

// ErrGone reports that the window's loop has shut down. Background callers
// treat it as a normal "UI closed" signal, not as a failure.
var ErrGone = errors.New("ui: window is gone")

// Task is a unit of work run on the UI loop.
type Task func(w *Window)

// Handle is a non-owning reference to a window on its loop. Post queues a
// task and returns at once; it fails with ErrGone once the loop is done.
type Handle interface {
	Post(task Task) error
	Done() <-chan struct{}
}

// Loop is a single-goroutine FIFO task runner that owns one Window.
type Loop struct {
	win   *Window
	tasks chan Task
	quit  chan struct{}
	done  chan struct{}
	once  sync.Once
}

var _ Handle = (*Loop)(nil)

// NewLoop creates a loop for w. backlog bounds the number of queued tasks;
// Post waits for room when it is exhausted.
func NewLoop(w *Window, backlog int) *Loop {
	if backlog <= 0 {
		backlog = 64
	}
	return &Loop{
		win:   w,
		tasks: make(chan Task, backlog),
		quit:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Run executes tasks in submission order until ctx is cancelled or Close is
// called. Tasks still queued at that point are discarded.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)
	for {
		select {
		case task := <-l.tasks:
			task(l.win)
		case <-l.quit:
			return
		case <-ctx.Done():
			return
		}
	}
}

// Post implements Handle.
func (l *Loop) Post(task Task) error {
	select {
	case <-l.done:
		return ErrGone
	case <-l.quit:
		return ErrGone
	default:
	}
	select {
	case l.tasks <- task:
		return nil
	case <-l.quit:
		return ErrGone
	case <-l.done:
		return ErrGone
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Close stops the loop. It does not wait; use Done for that.
func (l *Loop) Close() {
	l.once.Do(func() { close(l.quit) })
}

// Read runs fn on the window's loop and returns its result. It fails with
// ErrGone if the loop ends before fn ran.
func Read[T any](ctx context.Context, h Handle, fn func(w *Window) T) (T, error) {
	var zero T
	res := make(chan T, 1)
	if err := h.Post(func(w *Window) { res <- fn(w) }); err != nil {
		return zero, err
	}
	select {
	case v := <-res:
		return v, nil
	case <-h.Done():
		// fn may have run just before the loop exited.
		select {
		case v := <-res:
			return v, nil
		default:
			return zero, ErrGone
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// Invoke runs fn on the loop and waits for it to finish.
func Invoke(ctx context.Context, h Handle, fn func(w *Window)) error {
	_, err := Read(ctx, h, func(w *Window) struct{} {
		fn(w)
		return struct{}{}
	})
	return err
}
