package processor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/K13094/tap/internal/adapters/remoteid"
	"github.com/K13094/tap/internal/core/domain"
	"github.com/K13094/tap/internal/core/ports"
	"github.com/K13094/tap/internal/core/services/tracker"
	"github.com/K13094/tap/internal/telemetry"
)

// Processor is the single owner of the detection pipeline's hot path: it
// receives frame records, runs parser, correlator and spoof heuristics,
// and hands reports to the publisher. Per-MAC ordering holds because this
// is one task.
type Processor struct {
	log      zerolog.Logger
	parser   *remoteid.Parser
	tracker  *tracker.Tracker
	pub      ports.Publisher
	counters *telemetry.Counters
	tapUUID  string

	sweepEvery time.Duration
	tracer     trace.Tracer

	// now is time.Now outside of tests.
	now func() time.Time
}

// New assembles the processor.
func New(log zerolog.Logger, parser *remoteid.Parser, tr *tracker.Tracker, pub ports.Publisher,
	counters *telemetry.Counters, tapUUID string, sweepEvery time.Duration) *Processor {
	return &Processor{
		log:        log.With().Str("component", "processor").Logger(),
		parser:     parser,
		tracker:    tr,
		pub:        pub,
		counters:   counters,
		tapUUID:    tapUUID,
		sweepEvery: sweepEvery,
		tracer:     otel.Tracer("tap/processor"),
		now:        time.Now,
	}
}

// Run consumes frames until the channel closes or the context is
// cancelled. On cancellation the buffered frames are drained best-effort
// before returning; the caller then closes the publisher.
func (p *Processor) Run(ctx context.Context, frames <-chan *domain.FrameRecord) {
	sweep := time.NewTicker(p.sweepEvery)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			p.drain(frames)
			return
		case rec, ok := <-frames:
			if !ok {
				return
			}
			p.handle(ctx, rec)
		case <-sweep.C:
			if n := p.tracker.Evict(p.now()); n > 0 {
				p.log.Info().Int("evicted", n).Msg("stale airframes dropped")
			}
			p.counters.TrackedUavs.Store(int64(p.tracker.Len()))
		}
	}
}

func (p *Processor) drain(frames <-chan *domain.FrameRecord) {
	for {
		select {
		case rec, ok := <-frames:
			if !ok {
				return
			}
			p.handle(context.Background(), rec)
		default:
			return
		}
	}
}

func (p *Processor) handle(ctx context.Context, rec *domain.FrameRecord) {
	ev, err := p.parser.Parse(rec)
	if err != nil {
		p.counters.ParseErrors.Add(1)
		p.log.Debug().Err(err).Str("mac", rec.SourceMAC).Msg("payload dropped")
		return
	}
	if ev == nil {
		return
	}
	p.counters.FramesParsed.Add(1)

	_, span := p.tracer.Start(ctx, "detection",
		trace.WithAttributes(
			attribute.String("uav.mac", rec.SourceMAC),
			attribute.String("uav.source", string(ev.Source)),
		))
	defer span.End()

	st := p.tracker.Update(ev)
	p.counters.TrackedUavs.Store(int64(p.tracker.Len()))

	p.pub.Publish(domain.TopicUAV, st.Report(p.tapUUID, p.now()))
}
