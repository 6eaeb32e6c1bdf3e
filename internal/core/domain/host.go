package domain

// HostSample is one reading of the host metrics carried on heartbeats.
// Nil pointers mark readings the platform could not provide (no thermal
// zone, container without disk counters).
type HostSample struct {
	CPULoad1       *float64
	CPUPercent     *float64
	MemoryUsed     *uint64
	MemoryPercent  *float64
	Temperature    *float64 // °C
	DiskFree       *uint64
	DiskWriteBytes *uint64 // cumulative, SD-wear proxy
}
