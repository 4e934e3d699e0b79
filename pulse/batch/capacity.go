package batch

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// workersPerCPU is the pool size per logical CPU above which a warning is issued.
// Workers mostly wait on the engine, so a few per CPU are fine.
const workersPerCPU = 4

// CheckCapacity compares the worker count with the host and returns a
// warning, or "" when the pool size looks reasonable or the host cannot be inspected.
func CheckCapacity(workers int) string {
	cpus, err := cpu.Counts(true)
	if err != nil {
		return ""
	}
	var availableGB float64
	if v, err := mem.VirtualMemory(); err == nil {
		availableGB = float64(v.Available) / 1024 / 1024 / 1024
	}
	return capacityWarning(workers, cpus, availableGB)
}

func capacityWarning(workers, cpus int, availableGB float64) string {
	if cpus <= 0 || workers <= workersPerCPU*cpus {
		return ""
	}
	return fmt.Sprintf(
		"Worker count (%d) exceeds recommended (%d) for %d logical CPUs (%.1fGB available). "+
			"Consider reducing engine.threads.",
		workers, workersPerCPU*cpus, cpus, availableGB)
}
