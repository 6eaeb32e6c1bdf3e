package hopping

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/K13094/tap/internal/telemetry"
)

// ChannelHopper sequences the monitor-mode NIC across the merged channel
// plan, round robin, one hop per dwell interval. The channel is owned
// exclusively by the hopper; the heartbeat reads the current channel from
// the shared atomic cell.
type ChannelHopper struct {
	log      zerolog.Logger
	iface    string
	channels []int
	dwell    time.Duration
	switcher ChannelSwitcher
	counters *telemetry.Counters

	resetChan chan time.Duration

	currentIndex int
	errorCount   int
}

// NewHopper creates a hopper over the merged channel sequence. An empty
// sequence leaves the hopper idle.
func NewHopper(log zerolog.Logger, iface string, channels []int, dwell time.Duration, switcher ChannelSwitcher, counters *telemetry.Counters) *ChannelHopper {
	if switcher == nil {
		switcher = NewLinuxChannelSwitcher()
	}
	return &ChannelHopper{
		log:       log.With().Str("component", "hopper").Str("iface", iface).Logger(),
		iface:     iface,
		channels:  channels,
		dwell:     dwell,
		switcher:  switcher,
		counters:  counters,
		resetChan: make(chan time.Duration, 1),
	}
}

// Pause holds the NIC on its current channel for the given duration, for
// reactive dwell when a channel turns out to carry Remote-ID traffic.
// Non-blocking; a pause already pending wins.
func (h *ChannelHopper) Pause(d time.Duration) {
	select {
	case h.resetChan <- d:
	default:
	}
}

// Channels returns the plan the hopper sequences through.
func (h *ChannelHopper) Channels() []int {
	out := make([]int, len(h.channels))
	copy(out, h.channels)
	return out
}

// Run hops until the context is cancelled. With no channels configured it
// returns immediately; capture then stays on whatever channel the NIC was
// left on.
func (h *ChannelHopper) Run(ctx context.Context) {
	if len(h.channels) == 0 {
		h.log.Info().Msg("no channel plan, hopper idle")
		return
	}

	h.log.Info().Ints("channels", h.channels).Dur("dwell", h.dwell).Msg("starting channel hopper")

	ticker := time.NewTicker(h.dwell)
	defer ticker.Stop()

	h.hop()
	for {
		select {
		case <-ctx.Done():
			h.log.Info().Msg("stopping channel hopper")
			return
		case d := <-h.resetChan:
			h.log.Info().Dur("for", d).Msg("hopper paused")
			ticker.Stop()
			select {
			case <-time.After(d):
				h.log.Info().Msg("hopper resuming")
				ticker.Reset(h.dwell)
			case <-ctx.Done():
				return
			}
		case <-ticker.C:
			h.hop()
		}
	}
}

func (h *ChannelHopper) hop() {
	if h.currentIndex >= len(h.channels) {
		h.currentIndex = 0
	}
	ch := h.channels[h.currentIndex]
	h.currentIndex++

	if err := h.switcher.SetChannel(h.iface, ch); err != nil {
		h.errorCount++
		// Log the first failure and then every tenth, so a dead radio does
		// not flood the journal at dwell rate.
		if h.errorCount == 1 || h.errorCount%10 == 0 {
			h.log.Warn().Err(err).Int("channel", ch).Int("consecutive", h.errorCount).
				Msg("failed to set channel")
		}
		return
	}

	if h.errorCount > 0 {
		h.log.Info().Int("errors", h.errorCount).Msg("hopper recovered")
		h.errorCount = 0
	}
	h.counters.CurrentChannel.Store(int64(ch))
}
