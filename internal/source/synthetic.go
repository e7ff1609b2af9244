// SPDX-License-Identifier: MIT
package source

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"plotstream/internal/analysis"
	"plotstream/internal/block"
	"plotstream/internal/config"
	"plotstream/internal/control"
	"plotstream/internal/delivery"
	"plotstream/internal/log"
	"plotstream/internal/metrics"
)

// stageDepth is the number of frames that may sit between two stages.
const stageDepth = 2

// SyntheticOptions configures the generated signal.
type SyntheticOptions struct {
	BlockSize  int
	Frequency  float64
	SampleRate float64
	Rate       float64 // samples per second, <= 0 disables pacing
	Seed       uint64
	NoiseMode  analysis.NoiseMode
	Window     analysis.WindowFunc
	Shift      bool
}

// SyntheticOptionsFrom maps the synthetic config section to options.
func SyntheticOptionsFrom(cfg *config.Config) (SyntheticOptions, error) {
	mode, ok := analysis.ParseNoiseMode(cfg.Synthetic.NoiseMode)
	if !ok {
		return SyntheticOptions{}, errors.Errorf("unknown noise mode %q", cfg.Synthetic.NoiseMode)
	}
	win, err := analysis.ParseWindowFunc(cfg.Synthetic.Window)
	if err != nil {
		return SyntheticOptions{}, err
	}
	return SyntheticOptions{
		BlockSize:  cfg.Pipeline.BlockSize,
		Frequency:  cfg.Synthetic.Frequency,
		SampleRate: cfg.Synthetic.SampleRate,
		Rate:       cfg.Synthetic.Rate,
		Seed:       cfg.Synthetic.Seed,
		NoiseMode:  mode,
		Window:     win,
		Shift:      cfg.Synthetic.Shift,
	}, nil
}

// Synthetic runs tone -> noise -> FFT -> pacer -> magnitude -> sink, each
// stage in its own goroutine under one errgroup. The noise stage owns the
// gain and serves control requests between frames.
type Synthetic struct {
	opts     SyntheticOptions
	tone     *analysis.Tone
	noise    *analysis.Noise
	fft      *analysis.Transform
	port     *control.Port
	endpoint *control.Endpoint
	metrics  *metrics.Metrics
	once     sync.Once
}

var _ Source = (*Synthetic)(nil)

// NewSynthetic builds the pipeline with its initial gain.
func NewSynthetic(opts SyntheticOptions, gain float32, m *metrics.Metrics) (*Synthetic, error) {
	tone, err := analysis.NewTone(opts.Frequency, opts.SampleRate)
	if err != nil {
		return nil, errors.Wrap(err, "synthetic source")
	}
	fft, err := analysis.NewTransform(opts.BlockSize, opts.Window, opts.Shift)
	if err != nil {
		return nil, errors.Wrap(err, "synthetic source")
	}
	port, endpoint := control.NewPort()
	return &Synthetic{
		opts:     opts,
		tone:     tone,
		noise:    analysis.NewNoise(gain, opts.NoiseMode, opts.Seed),
		fft:      fft,
		port:     port,
		endpoint: endpoint,
		metrics:  m,
	}, nil
}

func (s *Synthetic) Name() string        { return config.StrategySynthetic }
func (s *Synthetic) Port() *control.Port { return s.port }

// Run starts the stages and waits for all of them to exit.
func (s *Synthetic) Run(ctx context.Context, out Sink) error {
	started := false
	s.once.Do(func() { started = true })
	if !started {
		return errors.New("synthetic source: already run")
	}
	defer s.endpoint.Close()

	g, gctx := errgroup.WithContext(ctx)

	tones := make(chan []complex128, stageDepth)
	noisy := make(chan []complex128, stageDepth)
	spectra := make(chan []complex128, stageDepth)
	paced := make(chan []complex128, stageDepth)
	mags := make(chan block.Block, stageDepth)

	g.Go(func() error {
		defer close(tones)
		for {
			if !send(gctx, tones, s.tone.Next(s.opts.BlockSize)) {
				return nil
			}
		}
	})

	g.Go(func() error {
		defer close(noisy)
		defer s.endpoint.Close()
		reqs := s.endpoint.Requests()
		for {
			// Pending updates go before the next frame; tones is always ready.
			s.serveAll(reqs)
			select {
			case req := <-reqs:
				s.serve(req)
			case frame, ok := <-tones:
				if !ok {
					return nil
				}
				s.noise.Apply(frame)
				if !s.forward(gctx, noisy, frame, reqs) {
					return nil
				}
			case <-gctx.Done():
				return nil
			}
		}
	})

	g.Go(func() error {
		defer close(spectra)
		for frame := range noisy {
			spec, err := s.fft.Forward(nil, frame)
			if err != nil {
				return errors.Wrap(err, "synthetic source: fft")
			}
			if !send(gctx, spectra, spec) {
				return nil
			}
		}
		return nil
	})

	g.Go(func() error {
		defer close(paced)
		pacer := analysis.NewPacer(s.opts.BlockSize, s.opts.Rate)
		for spec := range spectra {
			if pacer.Wait(gctx) != nil {
				return nil
			}
			if !send(gctx, paced, spec) {
				return nil
			}
		}
		return nil
	})

	g.Go(func() error {
		defer close(mags)
		for spec := range paced {
			if !send(gctx, mags, analysis.Magnitude(spec)) {
				return nil
			}
		}
		return nil
	})

	g.Go(func() error {
		for b := range mags {
			latest, discarded := delivery.Coalesce(b, mags)
			s.metrics.BlocksDropped(metrics.DropCoalesced, discarded)
			out.TryOffer(latest)
		}
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// serve applies one gain update.
func (s *Synthetic) serve(req control.Request) {
	gain, err := req.Gain()
	if err != nil {
		log.Debugf("synthetic: %v", err)
		req.Reply(err)
		return
	}
	s.noise.SetGain(gain)
	log.Debugf("synthetic: noise gain set to %g", gain)
	req.Reply(nil)
}

// serveAll answers every request that is already waiting.
func (s *Synthetic) serveAll(reqs <-chan control.Request) {
	for {
		select {
		case req := <-reqs:
			s.serve(req)
		default:
			return
		}
	}
}

// forward delivers frame downstream, answering requests while the paced
// stages hold it back.
func (s *Synthetic) forward(ctx context.Context, out chan<- []complex128, frame []complex128, reqs <-chan control.Request) bool {
	for {
		select {
		case out <- frame:
			return true
		case req := <-reqs:
			s.serve(req)
		case <-ctx.Done():
			return false
		}
	}
}

// send delivers v unless ctx ends first.
func send[T any](ctx context.Context, ch chan<- T, v T) bool {
	select {
	case ch <- v:
		return true
	case <-ctx.Done():
		return false
	}
}
