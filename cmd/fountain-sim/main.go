//go:build !tinygo

// Command fountain-sim runs the strobe engine on the host: a software
// alarm stands in for the timer interrupt and the strip is shown in the
// terminal or only counted.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"timefountain-go/bus"
	core "timefountain-go/fountain"
	"timefountain-go/output"
	"timefountain-go/platform"
	"timefountain-go/services/console"
	fsvc "timefountain-go/services/fountain"
	"timefountain-go/services/heartbeat"
)

type options struct {
	Config    string
	Device    string
	LEDs      int
	Preview   bool
	Console   bool
	Metrics   string
	Tolerance uint32
	LogLevel  string
}

func bindFlags(f *pflag.FlagSet, o *options) {
	f.StringVarP(&o.Config, "config", "c", "", "TOML configuration file, reloaded on change")
	f.StringVar(&o.Device, "device", "pico", "embedded configuration to use when no file is given")
	f.IntVar(&o.LEDs, "leds", 60, "strip length")
	f.BoolVar(&o.Preview, "preview", false, "draw the strip in the terminal")
	f.BoolVar(&o.Console, "console", true, "read console commands from stdin (ignored with --preview)")
	f.StringVar(&o.Metrics, "metrics", ":9108", "Prometheus listen address, empty to disable")
	f.Uint32Var(&o.Tolerance, "tolerance", 2000, "minimum late tolerance in ticks")
	f.StringVar(&o.LogLevel, "log-level", "info", "debug, info, warn or error")
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:          "fountain-sim",
		Short:        "Run the time fountain strobe engine on the host",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	bindFlags(cmd.Flags(), &opts)
	return cmd
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) *slog.Logger {
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(level)); err != nil {
		lv = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lv}))
}

func run(ctx context.Context, opts options) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	logger := newLogger(opts.LogLevel)
	if opts.LEDs <= 0 {
		return fmt.Errorf("leds must be positive, got %d", opts.LEDs)
	}

	b := bus.NewBus(16)
	rec := output.NewRecorder(0)
	mbox := output.NewMailbox(opts.LEDs)
	go mbox.Run(ctx, rec)

	clock := platform.NewClock()
	alarm := platform.NewSoftAlarm(clock)
	defer alarm.Stop()

	settings := core.DefaultSettings()
	settings.Tolerance = opts.Tolerance
	eng := core.New(clock, alarm, mbox, settings)
	alarm.Bind(eng.OnAlarm)
	if err := eng.Start(); err != nil {
		return fmt.Errorf("start engine: %w", err)
	}

	go fsvc.New(b.NewConnection("fountain"), eng).Run(ctx)
	hb := &heartbeat.Service{Log: func(l string) { logger.Info(l) }}
	_ = hb.Start(ctx, b.NewConnection("heartbeat"))

	src := &configSource{
		conn:      b.NewConnection("sim"),
		path:      opts.Config,
		device:    opts.Device,
		tolerance: opts.Tolerance,
	}
	if err := src.publish(); err != nil {
		return err
	}
	if opts.Config != "" {
		w := newFileWatcher(opts.Config, 250*time.Millisecond, logger)
		go func() {
			err := w.Run(ctx, func() {
				if err := src.publish(); err != nil {
					logger.Warn("config reload rejected", "path", opts.Config, "error", err)
					return
				}
				logger.Info("config reloaded", "path", opts.Config)
			})
			if err != nil {
				logger.Error("config watcher stopped", "error", err)
			}
		}()
	}

	if opts.Metrics != "" {
		reg := prometheus.NewRegistry()
		if err := registerMetrics(reg, eng, mbox); err != nil {
			return fmt.Errorf("register metrics: %w", err)
		}
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: opts.Metrics, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "addr", opts.Metrics, "error", err)
			}
		}()
		defer func() {
			sctx, scancel := context.WithTimeout(context.Background(), time.Second)
			defer scancel()
			_ = srv.Shutdown(sctx)
		}()
		logger.Info("metrics listening", "addr", opts.Metrics)
	}

	logger.Info("fountain running", "leds", opts.LEDs, "tolerance", opts.Tolerance)
	switch {
	case opts.Preview:
		return runPreview(ctx, rec, eng)
	case opts.Console:
		con := console.New(b.NewConnection("console"), platform.NewStreamPort(os.Stdin, os.Stdout))
		if err := con.Run(ctx); err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("console: %w", err)
		}
	}
	<-ctx.Done()
	return nil
}
