package telemetry

import "sync/atomic"

// Counters are the pipeline's cross-task scalars. Each is written by its
// producing task (ParseErrors by both the capture reader and the
// processor) and read by the heartbeat task; no locks on the hot path.
type Counters struct {
	// FramesTotal counts dissector lines read, parsed or not.
	FramesTotal atomic.Uint64
	// FramesParsed counts detection events emitted by the parser.
	FramesParsed atomic.Uint64
	// ParseErrors counts malformed payloads and dissector lines.
	ParseErrors atomic.Uint64
	// CaptureErrors counts dissector exits outside of shutdown.
	CaptureErrors atomic.Uint64
	// PublishDrops counts reports discarded at the outbound queue HWM.
	PublishDrops atomic.Uint64

	// CurrentChannel is the channel the hopper last tuned, 0 before the
	// first hop.
	CurrentChannel atomic.Int64
	// TrackedUavs mirrors the tracker's table size for the status surface.
	TrackedUavs atomic.Int64
}
