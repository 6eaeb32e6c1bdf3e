package capture

import (
	"bufio"
	"context"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/K13094/tap/internal/core/domain"
	"github.com/K13094/tap/internal/telemetry"
)

// frameBufSize bounds the channel between the capture reader and the
// processor. A full buffer blocks the reader; the dissector's own pipe
// provides flow control, so blocking (not dropping) is correct here.
const frameBufSize = 512

// maxLineBytes caps one dissector line; vendor data of a full-size beacon
// stays well under this.
const maxLineBytes = 256 * 1024

// Source owns the dissector child process: spawn, read, respawn on any
// exit. Implements ports.FrameSource.
type Source struct {
	log          zerolog.Logger
	binary       string
	iface        string
	restartDelay time.Duration
	counters     *telemetry.Counters

	running atomic.Bool

	// command builds the child process; swapped in tests.
	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewSource creates a capture driver for the interface.
func NewSource(log zerolog.Logger, binary, iface string, restartDelay time.Duration, counters *telemetry.Counters) *Source {
	return &Source{
		log:          log.With().Str("component", "capture").Str("iface", iface).Logger(),
		binary:       binary,
		iface:        iface,
		restartDelay: restartDelay,
		counters:     counters,
		command:      exec.CommandContext,
	}
}

// Running reports whether a dissector process is currently alive.
func (s *Source) Running() bool { return s.running.Load() }

// Run supervises the dissector until the context is cancelled. Frame
// records are delivered on the returned channel, which is closed on
// return.
func (s *Source) Run(ctx context.Context) <-chan *domain.FrameRecord {
	out := make(chan *domain.FrameRecord, frameBufSize)
	go s.supervise(ctx, out)
	return out
}

func (s *Source) supervise(ctx context.Context, out chan<- *domain.FrameRecord) {
	defer close(out)

	for ctx.Err() == nil {
		err := s.runOnce(ctx, out)
		if ctx.Err() != nil {
			// Shutdown teardown kills the child; that exit is not a capture
			// failure.
			return
		}

		s.counters.CaptureErrors.Add(1)
		if err != nil {
			s.log.Warn().Err(err).Msg("dissector exited, respawning")
		} else {
			s.log.Warn().Msg("dissector exited cleanly, respawning")
		}

		select {
		case <-time.After(s.restartDelay):
		case <-ctx.Done():
			return
		}
	}
}

// runOnce spawns one dissector and pumps its output until it dies.
func (s *Source) runOnce(ctx context.Context, out chan<- *domain.FrameRecord) error {
	cmd := s.command(ctx, s.binary, Args(s.iface)...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return err
	}
	s.log.Info().Int("pid", cmd.Process.Pid).Msg("dissector started")
	s.running.Store(true)
	defer s.running.Store(false)

	go func() {
		sc := bufio.NewScanner(stderr)
		for sc.Scan() {
			s.log.Debug().Str("stream", "stderr").Msg(sc.Text())
		}
	}()

	sc := bufio.NewScanner(stdout)
	sc.Buffer(make([]byte, 64*1024), maxLineBytes)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			continue
		}
		s.counters.FramesTotal.Add(1)

		rec, err := parseLine(line)
		if err != nil {
			s.counters.ParseErrors.Add(1)
			s.log.Debug().Err(err).Msg("unparseable dissector line")
			continue
		}

		select {
		case out <- rec:
		case <-ctx.Done():
			_ = cmd.Process.Kill()
			return cmd.Wait()
		}
	}

	return cmd.Wait()
}
