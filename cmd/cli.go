// Package cmd wires configuration, logging and metrics to the plotstream
// commands.
package cmd

import (
	"context"
	"io"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"plotstream/internal/build"
	"plotstream/internal/config"
	"plotstream/internal/log"
	"plotstream/internal/metrics"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath  string
	strategy    string
	metricsAddr string
	logFile     string
	verbose     bool
}

// Execute runs the command line against os.Args.
func Execute() error {
	root := newRootCmd(os.Stdout)
	root.SetArgs(os.Args[1:])
	return root.Execute()
}

func newRootCmd(out io.Writer) *cobra.Command {
	buildInfo := build.GetBuildFlags()
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         build.Description,
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetVersionTemplate("{{.Version}}\n")

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configPath, "config", "c", "",
		"Path to a YAML config file (default: plotstream.yaml or config.yaml when present)")
	flags.StringVarP(&opts.strategy, "strategy", "s", "",
		"Sample source: synthetic, replay or network")
	flags.StringVar(&opts.metricsAddr, "metrics-addr", "",
		"Serve Prometheus metrics on this address, e.g. :2112")
	flags.StringVar(&opts.logFile, "log-file", "",
		"Write logs to this file while the terminal UI is running")
	flags.BoolVarP(&opts.verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.AddCommand(
		newRunCmd(opts),
		newFeedCmd(opts),
		newDatasetCmd(opts),
	)
	return rootCmd
}

// load reads the config file and applies flag overrides on top of it.
func (o *globalOptions) load() (*config.Config, error) {
	cfg, err := config.LoadConfig(o.configPath)
	if err != nil {
		return nil, err
	}
	if o.strategy != "" {
		cfg.Strategy = o.strategy
	}
	if o.metricsAddr != "" {
		cfg.Metrics.Addr = o.metricsAddr
	}
	if o.logFile != "" {
		cfg.LogFile = o.logFile
	}
	if o.verbose {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid flags")
	}

	setLogLevel(cfg)
	return cfg, nil
}

func setLogLevel(cfg *config.Config) {
	if cfg.Debug {
		log.SetLevel(log.LevelDebug)
		return
	}
	level, ok := log.ParseLevel(cfg.LogLevel)
	if !ok {
		log.Warnf("unknown log level %q, using %s", cfg.LogLevel, level)
	}
	log.SetLevel(level)
}

// startMetrics registers the plotstream collectors on a fresh registry and,
// when addr is set, serves them on /metrics. The returned stop function
// shuts the server down.
func startMetrics(addr string) (*metrics.Metrics, func(), error) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	if addr == "" {
		return m, func() {}, nil
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "metrics listen %s", addr)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics: server error: %v", err)
		}
	}()
	log.Infof("metrics: serving on http://%s/metrics", ln.Addr())

	return m, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
