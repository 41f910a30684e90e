package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/process"
)

const (
	DefaultInterval = time.Second
	DefaultCapacity = 10000
)

// Probe takes one reading.
type Probe func(ctx context.Context) (float64, error)

// Monitor samples a probe at a fixed interval until its context ends.
type Monitor struct {
	Name     string
	probe    Probe
	interval time.Duration
	samples  *Samples
}

func NewMonitor(name string, probe Probe, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Monitor{
		Name:     name,
		probe:    probe,
		interval: interval,
		samples:  NewSamples(DefaultCapacity),
	}
}

// Run blocks until ctx is done. Probe failures are logged and skipped.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			v, err := m.probe(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				slog.Debug("telemetry probe", "monitor", m.Name, "error", err)
				continue
			}
			m.samples.Add(v)
		}
	}
}

func (m *Monitor) Samples() *Samples {
	return m.samples
}

// CPUProbe reports the CPU share of proc as a percentage of the whole machine.
func CPUProbe(proc *process.Process) Probe {
	return func(ctx context.Context) (float64, error) {
		cores, err := cpu.CountsWithContext(ctx, true)
		if err != nil || cores < 1 {
			cores = 1
		}

		// relative to the previous call; the first call primes the counters
		pct, err := proc.PercentWithContext(ctx, 0)
		if err != nil {
			return 0, fmt.Errorf("cpu percent: %w", err)
		}
		return pct / float64(cores), nil
	}
}

// RAMProbe reports the resident memory of proc in megabytes.
func RAMProbe(proc *process.Process) Probe {
	return func(ctx context.Context) (float64, error) {
		mem, err := proc.MemoryInfoWithContext(ctx)
		if err != nil {
			return 0, fmt.Errorf("memory info: %w", err)
		}
		return float64(mem.RSS) / 1024 / 1024, nil
	}
}

// CurrentProcess returns a handle to this process.
func CurrentProcess() (*process.Process, error) {
	return process.NewProcess(int32(os.Getpid()))
}
