package cmd

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"plotstream/internal/config"
	"plotstream/internal/dispatch"
	"plotstream/internal/lifecycle"
	"plotstream/internal/log"
	"plotstream/internal/metrics"
	"plotstream/internal/render"
	"plotstream/internal/tui"
	"plotstream/internal/ui"
)

type runOptions struct {
	headless  bool
	framesDir string
	duration  time.Duration
}

func newRunCmd(g *globalOptions) *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the plot window and stream blocks into it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m, stopMetrics, err := startMetrics(cfg.Metrics.Addr)
			if err != nil {
				return err
			}
			defer stopMetrics()

			if opts.headless {
				return runHeadless(ctx, cfg, m, opts, cmd.OutOrStdout())
			}
			return runTUI(ctx, cfg, m)
		},
	}
	cmd.Flags().BoolVar(&opts.headless, "headless", false,
		"Run without the terminal UI; plotting is enabled immediately")
	cmd.Flags().StringVar(&opts.framesDir, "frames-dir", "",
		"Write every rendered frame as a PNG into this directory (headless only)")
	cmd.Flags().DurationVar(&opts.duration, "duration", 0,
		"Stop after this long (headless only, 0 runs until interrupted)")
	return cmd
}

// pipeline is the part shared by both front ends.
type pipeline struct {
	win  *ui.Window
	plot *render.Plot
	ctrl *lifecycle.Controller
}

func newPipeline(cfg *config.Config, m *metrics.Metrics, win *ui.Window, plot *render.Plot, h ui.Handle) *pipeline {
	disp := dispatch.New(h, plot, m)
	opts := lifecycle.OptionsFrom(cfg, m)
	opts.OnTransition = func(t lifecycle.Transition) {
		if t.State == lifecycle.Running {
			log.Infof("pipeline generation %d running", t.Generation)
		}
	}
	ctrl := lifecycle.New(lifecycle.SourceFactory(cfg, m), disp, opts)
	win.OnPlotEnableToggled = ctrl.Toggled
	return &pipeline{win: win, plot: plot, ctrl: ctrl}
}

func (p *pipeline) close(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := p.ctrl.Close(ctx); err != nil {
		log.Warnf("pipeline: %v", err)
	}
}

func runTUI(ctx context.Context, cfg *config.Config, m *metrics.Metrics) error {
	// The terminal belongs to the UI; logs go to the log file or nowhere.
	var logOut io.Writer = io.Discard
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return errors.Wrap(err, "open log file")
		}
		defer f.Close()
		logOut = f
	}
	log.SetOutput(logOut)
	defer log.SetOutput(os.Stderr)

	win := ui.NewWindow(cfg.Plot)
	plot := render.NewPlot()
	prog := tui.NewProgram(win, plot, tea.WithAltScreen(), tea.WithContext(ctx))
	p := newPipeline(cfg, m, win, plot, prog)
	defer p.close(2 * cfg.Pipeline.TerminateTimeout)

	if cfg.Plot.Enabled {
		// Post blocks until the program is reading messages.
		go func() {
			_ = prog.Post(func(w *ui.Window) { w.SetPlotEnabled(true) })
		}()
	}

	log.Infof("run: starting %s pipeline", cfg.Strategy)
	if err := prog.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return errors.Wrap(err, "terminal ui")
	}
	return nil
}

// frame is what the headless front end reads back from the window.
type frame struct {
	n    uint64
	img  image.Image
	meta render.Meta
}

func runHeadless(ctx context.Context, cfg *config.Config, m *metrics.Metrics, opts *runOptions, out io.Writer) error {
	if opts.duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.duration)
		defer cancel()
	}
	if opts.framesDir != "" {
		if err := os.MkdirAll(opts.framesDir, 0o755); err != nil {
			return errors.Wrap(err, "frames dir")
		}
	}

	win := ui.NewWindow(cfg.Plot)
	loop := ui.NewLoop(win, 0)
	go loop.Run(context.Background())
	defer func() {
		loop.Close()
		<-loop.Done()
	}()

	p := newPipeline(cfg, m, win, render.NewPlot(), loop)
	defer p.close(2 * cfg.Pipeline.TerminateTimeout)

	if err := ui.Invoke(ctx, loop, func(w *ui.Window) { w.SetPlotEnabled(true) }); err != nil {
		return err
	}
	log.Infof("run: headless %s pipeline started", cfg.Strategy)

	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()

	var last frame
	for {
		select {
		case <-ctx.Done():
			_ = ui.Invoke(context.Background(), loop, func(w *ui.Window) { w.SetPlotEnabled(false) })
			fmt.Fprintf(out, "rendered %d frames (min %g, max %g)\n", last.n, last.meta.Min, last.meta.Max)
			return nil
		case <-ticker.C:
		}

		f, err := ui.Read(ctx, loop, func(w *ui.Window) frame {
			return frame{n: w.Frames, img: w.PlotFrame, meta: w.Meta}
		})
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			return err
		}
		if f.n == last.n || f.img == nil {
			continue
		}
		last = f
		if opts.framesDir != "" {
			if err := writeFrame(opts.framesDir, f); err != nil {
				return err
			}
		}
	}
}

func writeFrame(dir string, f frame) error {
	path := filepath.Join(dir, fmt.Sprintf("frame-%06d.png", f.n))
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "create frame")
	}
	if err := png.Encode(file, f.img); err != nil {
		file.Close()
		return errors.Wrapf(err, "encode %s", path)
	}
	return file.Close()
}
