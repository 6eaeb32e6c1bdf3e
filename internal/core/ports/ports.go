package ports

import (
	"context"

	"github.com/K13094/tap/internal/core/domain"
)

// FrameSource is the abstraction for a supervised capture pipeline.
type FrameSource interface {
	// Run spawns and supervises the dissector until the context is
	// cancelled, delivering frame records on the returned channel. The
	// channel is closed when Run returns.
	Run(ctx context.Context) <-chan *domain.FrameRecord

	// Running reports whether a dissector process is currently alive.
	Running() bool
}

// Publisher is the outbound side of the tap.
type Publisher interface {
	// Publish enqueues one two-frame message. It never blocks; when the
	// outbound queue is full the message is dropped and counted.
	Publish(topic string, payload interface{})

	// Close flushes the queue up to the transport HWM and releases the
	// socket.
	Close() error
}

// HostSampler reads host-level metrics for the heartbeat and watchdog.
// Samples return nil pointers for readings the host cannot provide.
type HostSampler interface {
	Sample() domain.HostSample
}
