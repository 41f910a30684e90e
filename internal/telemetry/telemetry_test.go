package telemetry

import (
	"context"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sershocode/supdater/internal/utils"
	"github.com/sershocode/supdater/internal/version"
	"github.com/sershocode/supdater/internal/webclient"
)

func TestSamples_RingBuffer(t *testing.T) {
	s := NewSamples(3)
	assert.Equal(t, 0, s.Len())
	assert.Equal(t, minReported, s.Max())
	assert.Equal(t, minReported, s.Average())

	s.Add(9)
	s.Add(0)
	s.Add(math.Inf(1))
	s.Add(math.NaN())
	s.Add(-1)
	assert.Equal(t, 1, s.Len())

	s.Add(3)
	s.Add(6)
	s.Add(3) // evicts 9
	assert.Equal(t, 3, s.Len())
	assert.Equal(t, 6.0, s.Max())
	assert.Equal(t, 4.0, s.Average())
}

func TestSamples_Floor(t *testing.T) {
	s := NewSamples(4)
	s.Add(0.001)
	assert.Equal(t, minReported, s.Max())
	assert.Equal(t, minReported, s.Average())
}

func TestMonitor_RunUntilCancelled(t *testing.T) {
	var calls atomic.Int32
	probe := func(context.Context) (float64, error) {
		n := calls.Add(1)
		if n == 2 {
			return 0, errors.New("transient")
		}
		return float64(n), nil
	}

	m := NewMonitor("test", probe, time.Millisecond)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()

	require.Eventually(t, func() bool { return m.Samples().Len() >= 3 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop")
	}
	assert.GreaterOrEqual(t, m.Samples().Max(), 3.0)
}

func TestSampler_StartStop(t *testing.T) {
	s := newSampler(
		func(context.Context) (float64, error) { return 50, nil },
		func(context.Context) (float64, error) { return 128, nil },
		time.Millisecond,
	)
	assert.NoError(t, s.Stop(), "stop before start")

	s.Start(context.Background())
	require.Eventually(t, func() bool {
		return s.cpu.Samples().Len() > 0 && s.ram.Samples().Len() > 0
	}, time.Second, time.Millisecond)
	require.NoError(t, s.Stop())

	load := s.Load()
	assert.Equal(t, 50.0, load.MaxCPU)
	assert.Equal(t, 50.0, load.AverageCPU)
	assert.Equal(t, 128.0, load.MaxRAM)
	assert.Equal(t, 128.0, load.AverageRAM)
}

func TestProbes_CurrentProcess(t *testing.T) {
	proc, err := CurrentProcess()
	require.NoError(t, err)

	ram, err := RAMProbe(proc)(context.Background())
	require.NoError(t, err)
	assert.Greater(t, ram, 0.0)

	cpu := CPUProbe(proc)
	_, err = cpu(context.Background())
	require.NoError(t, err)
}

func TestNewStats(t *testing.T) {
	finished := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	stats := NewStats("Ubuntu 22.04", Run{
		Files:           12,
		DownloadedBytes: 3 * 1024 * 1024,
		Duration:        90 * time.Second,
		Finished:        finished,
	}, Load{MaxCPU: 40, AverageCPU: 10, MaxRAM: 64, AverageRAM: 32})

	assert.Equal(t, "Ubuntu 22.04", stats.OperationSystem)
	assert.Equal(t, 12, stats.FileHandledCount)
	assert.Equal(t, 3.0, stats.DownloadedMegabytes)
	assert.Equal(t, 1.5, stats.UpdateTimeMinutes)
	assert.Equal(t, finished, stats.UpdateDate)
	assert.Equal(t, version.Version, stats.AppVersion)
	assert.Equal(t, utils.HWID, stats.InstallId)
}

func TestOSName(t *testing.T) {
	assert.NotEmpty(t, OSName(context.Background()))
}

func TestSender(t *testing.T) {
	var got Stats
	var contentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		body, _ := io.ReadAll(r.Body)
		if err := webclient.JSONUnmarshal(body, &got); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sender, err := NewSender(srv.URL, nil)
	require.NoError(t, err)

	stats := &Stats{OperationSystem: "linux", FileHandledCount: 3, AppVersion: "1.2.3"}
	require.NoError(t, sender.Send(context.Background(), stats))

	assert.Contains(t, contentType, "application/json")
	assert.Equal(t, "linux", got.OperationSystem)
	assert.Equal(t, 3, got.FileHandledCount)
	assert.Equal(t, "1.2.3", got.AppVersion)
}

func TestSender_Errors(t *testing.T) {
	_, err := NewSender("  ", nil)
	assert.ErrorIs(t, err, ErrNoStatsURL)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	sender, err := NewSender(srv.URL, nil)
	require.NoError(t, err)
	assert.Error(t, sender.Send(context.Background(), &Stats{}))
}
