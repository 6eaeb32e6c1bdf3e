package health

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/K13094/tap/internal/core/domain"
	"github.com/K13094/tap/internal/core/ports"
	"github.com/K13094/tap/internal/telemetry"
)

// Distinguished exit codes, so the supervisor's logs tell the watchdog
// causes apart.
const (
	ExitStarvation     = 3
	ExitMemoryPressure = 4
)

// Identity carries the static heartbeat fields.
type Identity struct {
	TapUUID   string
	TapName   string
	Version   string
	Interface string
	Latitude  float64
	Longitude float64
	Channels  []int
}

// Monitor emits heartbeats and runs the liveness watchdogs. Starvation and
// memory pressure both end the process with a distinguished code; the
// external supervisor restarts it.
type Monitor struct {
	log      zerolog.Logger
	identity Identity

	interval           time.Duration
	starvationTimeout  time.Duration
	memoryThresholdPct float64

	sampler  ports.HostSampler
	pub      ports.Publisher
	counters *telemetry.Counters
	capture  ports.FrameSource

	started     time.Time
	lastFrames  uint64
	lastAdvance time.Time

	// exit is os.Exit outside of tests.
	exit func(code int)
}

// NewMonitor assembles the heartbeat/watchdog task.
func NewMonitor(log zerolog.Logger, identity Identity, interval, starvationTimeout time.Duration,
	memoryThresholdPct float64, sampler ports.HostSampler, pub ports.Publisher,
	counters *telemetry.Counters, capture ports.FrameSource) *Monitor {
	return &Monitor{
		log:                log.With().Str("component", "health").Logger(),
		identity:           identity,
		interval:           interval,
		starvationTimeout:  starvationTimeout,
		memoryThresholdPct: memoryThresholdPct,
		sampler:            sampler,
		pub:                pub,
		counters:           counters,
		capture:            capture,
		exit:               os.Exit,
	}
}

// Run ticks until the context is cancelled. Each tick publishes one
// heartbeat and evaluates the watchdog rules.
func (m *Monitor) Run(ctx context.Context) {
	m.started = time.Now()
	m.lastAdvance = m.started

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sample := m.sampler.Sample()
			m.pub.Publish(domain.TopicHeartbeat, m.heartbeat(sample, time.Now()))
			if code, fatal := m.watchdog(sample, time.Now()); fatal {
				m.exit(code)
				return
			}
		}
	}
}

// heartbeat assembles the status document for one tick.
func (m *Monitor) heartbeat(sample domain.HostSample, now time.Time) *domain.Heartbeat {
	return &domain.Heartbeat{
		Type:            domain.ReportTypeHeartbeat,
		ProtocolVersion: domain.ProtocolVersion,
		TapUUID:         m.identity.TapUUID,
		TapName:         m.identity.TapName,
		Timestamp:       domain.WireTimestamp(now),
		Version:         m.identity.Version,
		Interface:       m.identity.Interface,
		Channel:         int(m.counters.CurrentChannel.Load()),

		CPULoad:       sample.CPULoad1,
		CPUPercent:    sample.CPUPercent,
		MemoryUsed:    sample.MemoryUsed,
		MemoryPercent: sample.MemoryPercent,
		Temperature:   sample.Temperature,
		DiskFree:      sample.DiskFree,
		DiskWrites:    sample.DiskWriteBytes,

		Latitude:  m.identity.Latitude,
		Longitude: m.identity.Longitude,

		FramesTotal:   m.counters.FramesTotal.Load(),
		FramesParsed:  m.counters.FramesParsed.Load(),
		TsharkRunning: m.capture.Running(),
		TapUptime:     now.Sub(m.started).Seconds(),
		Channels:      m.identity.Channels,
		CaptureErrors: m.counters.CaptureErrors.Load(),
	}
}

// watchdog evaluates the liveness rules. A fatal verdict carries the exit
// code to die with.
func (m *Monitor) watchdog(sample domain.HostSample, now time.Time) (int, bool) {
	frames := m.counters.FramesTotal.Load()
	if frames != m.lastFrames {
		m.lastFrames = frames
		m.lastAdvance = now
	} else if now.Sub(m.lastAdvance) >= m.starvationTimeout {
		m.log.Error().Dur("starved_for", now.Sub(m.lastAdvance)).
			Msg("no frames from dissector, exiting for supervisor restart")
		return ExitStarvation, true
	}

	if sample.MemoryPercent != nil && *sample.MemoryPercent >= m.memoryThresholdPct {
		m.log.Error().Float64("memory_percent", *sample.MemoryPercent).
			Float64("threshold", m.memoryThresholdPct).
			Msg("memory pressure, exiting for supervisor restart")
		return ExitMemoryPressure, true
	}

	return 0, false
}
