// Package hostmetrics samples ambient host diagnostics (CPU, memory) for the
// controller's supervisor loop to log. It is never consulted by a scaling
// decision — those are driven entirely by metricsmgr's CloudWatch
// utilisation figures.
package hostmetrics

import (
	"context"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Snapshot is a point-in-time read of host resource usage.
type Snapshot struct {
	CPUPercent    float64
	MemoryPercent float64
}

// Sample reads current CPU and memory utilisation for the host the
// controller process is running on.
func Sample(ctx context.Context) (Snapshot, error) {
	cpuPercents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return Snapshot{}, err
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	var cpuPct float64
	if len(cpuPercents) > 0 {
		cpuPct = cpuPercents[0]
	}
	return Snapshot{CPUPercent: cpuPct, MemoryPercent: vm.UsedPercent}, nil
}
