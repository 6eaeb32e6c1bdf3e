package health

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/K13094/tap/internal/core/domain"
)

// thermalGlob matches the kernel thermal zones; the first readable one is
// taken as the CPU temperature.
const thermalGlob = "/sys/class/thermal/thermal_zone*/temp"

// GopsutilSampler reads host metrics through gopsutil. Every reading is
// best-effort: a platform that cannot provide one yields nil for it.
type GopsutilSampler struct {
	log zerolog.Logger
}

// NewSampler creates the host metrics sampler.
func NewSampler(log zerolog.Logger) *GopsutilSampler {
	return &GopsutilSampler{log: log.With().Str("component", "sampler").Logger()}
}

// Sample reads one snapshot of the host metrics.
func (s *GopsutilSampler) Sample() domain.HostSample {
	var out domain.HostSample

	if avg, err := load.Avg(); err == nil {
		out.CPULoad1 = &avg.Load1
	}
	if pct, err := cpu.Percent(0, false); err == nil && len(pct) > 0 {
		out.CPUPercent = &pct[0]
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		out.MemoryUsed = &vm.Used
		out.MemoryPercent = &vm.UsedPercent
	}
	if du, err := disk.Usage("/"); err == nil {
		out.DiskFree = &du.Free
	}
	if counters, err := disk.IOCounters(); err == nil {
		var writes uint64
		for _, c := range counters {
			writes += c.WriteBytes
		}
		out.DiskWriteBytes = &writes
	}
	out.Temperature = readTemperature()

	return out
}

// readTemperature reads the first thermal zone, in °C. Returns nil when
// the host exposes none (VMs, some SBCs).
func readTemperature() *float64 {
	zones, err := filepath.Glob(thermalGlob)
	if err != nil {
		return nil
	}
	for _, zone := range zones {
		data, err := os.ReadFile(zone)
		if err != nil {
			continue
		}
		milli, err := strconv.Atoi(strings.TrimSpace(string(data)))
		if err != nil {
			continue
		}
		v := float64(milli) / 1000
		return &v
	}
	return nil
}
