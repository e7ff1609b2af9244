package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"plotstream/internal/analysis"
	"plotstream/internal/config"
	"plotstream/internal/log"
	"plotstream/internal/metrics"
	"plotstream/internal/source"
	"plotstream/internal/transport"
)

type feedOptions struct {
	addr     string
	dryRun   bool
	duration time.Duration
}

func newFeedCmd(g *globalOptions) *cobra.Command {
	opts := &feedOptions{}
	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Serve a synthetic spectrum over WebSocket for the network strategy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			if opts.addr != "" {
				cfg.Feed.Addr = opts.addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if opts.duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, opts.duration)
				defer cancel()
			}

			m, stopMetrics, err := startMetrics(cfg.Metrics.Addr)
			if err != nil {
				return err
			}
			defer stopMetrics()

			var t transport.Transport
			if opts.dryRun {
				t = transport.NewLoggingTransport(time.Second)
			} else {
				wst := transport.NewWebSocketTransport(cfg.Feed.Addr)
				if err := wst.Start(); err != nil {
					return err
				}
				t = wst
			}
			return runFeed(ctx, cfg, m, t)
		},
	}
	cmd.Flags().StringVar(&opts.addr, "addr", "",
		"Listen address (default from feed.addr, :9001)")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false,
		"Log blocks instead of serving them")
	cmd.Flags().DurationVar(&opts.duration, "duration", 0,
		"Stop after this long (0 runs until interrupted)")
	return cmd
}

// feedOptionsFrom derives the streamed signal from the synthetic section with
// the feed overrides applied.
func feedOptionsFrom(cfg *config.Config) (source.SyntheticOptions, error) {
	opts, err := source.SyntheticOptionsFrom(cfg)
	if err != nil {
		return opts, err
	}
	mode, ok := analysis.ParseNoiseMode(cfg.Feed.NoiseMode)
	if !ok {
		return opts, errors.Errorf("unknown feed noise mode %q", cfg.Feed.NoiseMode)
	}
	opts.NoiseMode = mode
	opts.Rate = cfg.Feed.Rate
	opts.Shift = cfg.Feed.Shift
	return opts, nil
}

func runFeed(ctx context.Context, cfg *config.Config, m *metrics.Metrics, t transport.Transport) error {
	defer func() {
		if err := t.Close(); err != nil {
			log.Warnf("feed: close transport: %v", err)
		}
	}()

	opts, err := feedOptionsFrom(cfg)
	if err != nil {
		return err
	}
	src, err := source.NewSynthetic(opts, cfg.Feed.Gain, m)
	if err != nil {
		return err
	}
	log.WithFields(log.Fields{
		"rate":  opts.Rate,
		"gain":  cfg.Feed.Gain,
		"shift": opts.Shift,
	}).Info("feed: streaming")

	if err := src.Run(ctx, transport.Sink{Transport: t}); err != nil && ctx.Err() == nil {
		return errors.Wrap(err, "feed")
	}
	return nil
}
