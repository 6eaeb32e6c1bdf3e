package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/K13094/tap/internal/adapters/capture"
	"github.com/K13094/tap/internal/adapters/driver"
	"github.com/K13094/tap/internal/adapters/hopping"
	"github.com/K13094/tap/internal/adapters/publish"
	"github.com/K13094/tap/internal/adapters/remoteid"
	"github.com/K13094/tap/internal/adapters/web"
	"github.com/K13094/tap/internal/config"
	"github.com/K13094/tap/internal/core/services/health"
	"github.com/K13094/tap/internal/core/services/processor"
	"github.com/K13094/tap/internal/core/services/tracker"
	"github.com/K13094/tap/internal/telemetry"
)

// Version is stamped by the build; the default marks development builds.
var Version = "1.2.0-dev"

// Application wires the pipeline tasks together and manages their
// lifecycle.
type Application struct {
	Config *config.Config
	Log    zerolog.Logger

	counters  *telemetry.Counters
	source    *capture.Source
	hopper    *hopping.ChannelHopper
	publisher *publish.Publisher
	processor *processor.Processor
	monitor   *health.Monitor
	web       *web.Server
	nic       *driver.WirelessDriver

	traceShutdown func(context.Context) error
}

// New bootstraps every component from the validated config.
func New(cfg *config.Config) (*Application, error) {
	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app := &Application{
		Config:   cfg,
		Log:      log,
		counters: &telemetry.Counters{},
	}
	telemetry.InitMetrics(app.counters)

	if cfg.TraceEnabled {
		// Traces go to stdout; the zerolog stream owns stderr.
		shutdown, err := telemetry.InitTracer(Version, os.Stdout, cfg.TraceSampleRatio)
		if err != nil {
			return nil, fmt.Errorf("init tracer: %w", err)
		}
		app.traceShutdown = shutdown
	}

	app.publisher, err = publish.New(log, cfg.NodeAddr(), cfg.ZMQBufferSize, cfg.ZMQHWM, app.counters)
	if err != nil {
		return nil, fmt.Errorf("init publisher: %w", err)
	}

	app.source = capture.NewSource(log, cfg.TsharkPath, cfg.Interface, cfg.TsharkRestartDelay(), app.counters)

	trk := tracker.New(log, cfg.StarvationTimeout())
	app.processor = processor.New(log, remoteid.NewParser(log), trk, app.publisher,
		app.counters, cfg.TapUUID, sweepInterval(cfg.StarvationTimeout()))

	// The hopper only owns the channel when this process owns the NIC.
	var plan []int
	if cfg.AutoMonitor {
		plan = cfg.MergedChannels()
	}
	app.hopper = hopping.NewHopper(log, cfg.Interface, plan, cfg.Dwell(), nil, app.counters)

	app.monitor = health.NewMonitor(log, health.Identity{
		TapUUID:   cfg.TapUUID,
		TapName:   cfg.TapName,
		Version:   Version,
		Interface: cfg.Interface,
		Latitude:  cfg.Latitude,
		Longitude: cfg.Longitude,
		Channels:  cfg.MergedChannels(),
	}, cfg.HeartbeatInterval(), cfg.StarvationTimeout(), cfg.MemoryPercentThreshold,
		health.NewSampler(log), app.publisher, app.counters, app.source)

	if cfg.DebugHTTPAddr != "" {
		app.web = web.NewServer(log, cfg.DebugHTTPAddr, app.counters)
	}

	app.nic = driver.New(log)
	return app, nil
}

// Run starts every task and blocks until shutdown completes. The
// processor drains the frame channel before the publisher flushes and
// closes.
func (app *Application) Run(ctx context.Context) error {
	cfg := app.Config

	if cfg.AutoMonitor {
		if err := app.nic.EnableMonitorMode(cfg.Interface); err != nil {
			return fmt.Errorf("monitor mode: %w", err)
		}
		defer app.nic.DisableMonitorMode(cfg.Interface)
	}

	app.Log.Info().
		Str("tap_uuid", cfg.TapUUID).
		Str("iface", cfg.Interface).
		Str("node", cfg.NodeAddr()).
		Str("version", Version).
		Msg("tap starting")

	frames := app.source.Run(ctx)
	go app.hopper.Run(ctx)
	go app.monitor.Run(ctx)
	if app.web != nil {
		go func() {
			if err := app.web.Run(ctx); err != nil {
				app.Log.Warn().Err(err).Msg("debug listener failed")
			}
		}()
	}

	// Blocks until cancellation (then drains the frames already buffered)
	// or until the capture channel closes.
	app.processor.Run(ctx, frames)

	if err := app.publisher.Close(); err != nil {
		app.Log.Warn().Err(err).Msg("publisher close")
	}
	if app.traceShutdown != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = app.traceShutdown(shutdownCtx)
	}

	app.Log.Info().Msg("tap stopped")
	return nil
}

// sweepInterval derives the eviction cadence from the state TTL.
func sweepInterval(ttl time.Duration) time.Duration {
	every := ttl / 4
	if every < time.Second {
		every = time.Second
	}
	return every
}

func newLogger(level string) (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("config: log_level %q: %w", level, err)
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger(), nil
}
