package telemetry

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var once sync.Once

// InitMetrics exposes the pipeline counters on the default Prometheus
// registry. Idempotent; the atomics stay the source of truth and the
// collectors read them on scrape.
func InitMetrics(c *Counters) {
	once.Do(func() {
		counter := func(name, help string, load func() uint64) prometheus.Collector {
			return prometheus.NewCounterFunc(prometheus.CounterOpts{
				Namespace: "tap",
				Name:      name,
				Help:      help,
			}, func() float64 { return float64(load()) })
		}
		gauge := func(name, help string, load func() int64) prometheus.Collector {
			return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
				Namespace: "tap",
				Name:      name,
				Help:      help,
			}, func() float64 { return float64(load()) })
		}

		collectors := []prometheus.Collector{
			counter("frames_total", "Dissector lines read", c.FramesTotal.Load),
			counter("frames_parsed_total", "Detection events emitted", c.FramesParsed.Load),
			counter("parse_errors_total", "Malformed payloads dropped", c.ParseErrors.Load),
			counter("capture_errors_total", "Dissector exits outside shutdown", c.CaptureErrors.Load),
			counter("publish_drops_total", "Reports dropped at the outbound queue HWM", c.PublishDrops.Load),
			gauge("current_channel", "Channel the hopper last tuned", c.CurrentChannel.Load),
			gauge("tracked_uavs", "Airframes currently tracked", c.TrackedUavs.Load),
		}
		for _, col := range collectors {
			prometheus.DefaultRegisterer.Register(col)
		}
	})
}
