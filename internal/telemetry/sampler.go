package telemetry

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Load is a summary of the sampled host load.
type Load struct {
	MaxCPU     float64
	AverageCPU float64
	MaxRAM     float64
	AverageRAM float64
}

// Sampler runs the CPU and RAM monitors in the background for the length of a run.
// The monitors share nothing with the run except the cancellation signal.
type Sampler struct {
	cpu    *Monitor
	ram    *Monitor
	cancel context.CancelFunc
	group  *errgroup.Group
}

func NewSampler(interval time.Duration) (*Sampler, error) {
	proc, err := CurrentProcess()
	if err != nil {
		return nil, err
	}
	return newSampler(CPUProbe(proc), RAMProbe(proc), interval), nil
}

func newSampler(cpuProbe, ramProbe Probe, interval time.Duration) *Sampler {
	return &Sampler{
		cpu: NewMonitor("cpu", cpuProbe, interval),
		ram: NewMonitor("ram", ramProbe, interval),
	}
}

func (s *Sampler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.group, ctx = errgroup.WithContext(ctx)
	s.group.Go(func() error { return s.cpu.Run(ctx) })
	s.group.Go(func() error { return s.ram.Run(ctx) })
}

// Stop cancels the monitors and waits for them. Safe to call without Start.
func (s *Sampler) Stop() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	return s.group.Wait()
}

func (s *Sampler) Load() Load {
	return Load{
		MaxCPU:     s.cpu.Samples().Max(),
		AverageCPU: s.cpu.Samples().Average(),
		MaxRAM:     s.ram.Samples().Max(),
		AverageRAM: s.ram.Samples().Average(),
	}
}
