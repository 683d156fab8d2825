package monitor

import (
	"context"
	"fmt"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/load"
	"github.com/shirou/gopsutil/v4/mem"
)

// Sample is one reading of host resource usage.
type Sample struct {
	MemoryPercent float64
	DiskPercent   float64
	LoadAverage   float64
}

// Sampler reads host resource usage.
type Sampler interface {
	Sample(ctx context.Context) (Sample, error)
}

// HostSampler reads the local host through gopsutil.
type HostSampler struct {
	diskPath string
}

// NewHostSampler creates a sampler reporting disk usage of diskPath.
func NewHostSampler(diskPath string) *HostSampler {
	if diskPath == "" {
		diskPath = "/"
	}
	return &HostSampler{diskPath: diskPath}
}

// Sample implements Sampler.
func (h *HostSampler) Sample(ctx context.Context) (Sample, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("read memory: %w", err)
	}
	usage, err := disk.UsageWithContext(ctx, h.diskPath)
	if err != nil {
		return Sample{}, fmt.Errorf("read disk usage of %s: %w", h.diskPath, err)
	}
	avg, err := load.AvgWithContext(ctx)
	if err != nil {
		return Sample{}, fmt.Errorf("read load average: %w", err)
	}
	return Sample{
		MemoryPercent: vm.UsedPercent,
		DiskPercent:   usage.UsedPercent,
		LoadAverage:   avg.Load1,
	}, nil
}
