package handlers

import (
	"context"
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// ProcessStats is the resource usage of the server process. Scheduler
// workers and websocket subscribers show up in the goroutine count.
type ProcessStats struct {
	RSSBytes              uint64  `json:"rss_bytes"`
	Goroutines            int     `json:"goroutines"`
	HostMemoryUsedPercent float64 `json:"host_memory_used_percent"`
}

func readProcessStats(ctx context.Context) (*ProcessStats, error) {
	p, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	info, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return nil, err
	}
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, err
	}

	return &ProcessStats{
		RSSBytes:              info.RSS,
		Goroutines:            runtime.NumGoroutine(),
		HostMemoryUsedPercent: vm.UsedPercent,
	}, nil
}
