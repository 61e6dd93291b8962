package binutil

import (
	"context"
	"os"
	"time"

	"github.com/goavatar/goavatar/engine/gwlog"
	"github.com/goavatar/goavatar/engine/gwvar"
	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/process"
)

// ProcessStats is one sample of the resource usage of this process
type ProcessStats struct {
	CPUPercent float64
	RSS        uint64
}

// SampleProcessStats reads the resource usage of this process
func SampleProcessStats(ctx context.Context) (ProcessStats, error) {
	p, err := process.NewProcessWithContext(ctx, int32(os.Getpid()))
	if err != nil {
		return ProcessStats{}, errors.Wrap(err, "find process")
	}
	return sampleProcess(ctx, p)
}

func sampleProcess(ctx context.Context, p *process.Process) (ProcessStats, error) {
	var stats ProcessStats
	var err error
	if stats.CPUPercent, err = p.CPUPercentWithContext(ctx); err != nil {
		return stats, errors.Wrap(err, "cpu percent")
	}
	mem, err := p.MemoryInfoWithContext(ctx)
	if err != nil {
		return stats, errors.Wrap(err, "memory info")
	}
	stats.RSS = mem.RSS
	return stats, nil
}

// StartProcessStats publishes the resource usage of this process to expvars every interval until ctx is done
func StartProcessStats(ctx context.Context, interval time.Duration) {
	pid := os.Getpid()
	p, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		gwlog.Errorf("procstats: can not find process: pid = %v: %v", pid, err)
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			stats, err := sampleProcess(ctx, p)
			if err != nil {
				gwlog.Warnf("procstats: %v", err)
				continue
			}
			gwlog.Debugf("procstats: cpu %.3f%%, rss %d", stats.CPUPercent, stats.RSS)
			gwvar.CPUPercent.Set(stats.CPUPercent)
			gwvar.RSS.Set(int64(stats.RSS))
		}
	}()
}
