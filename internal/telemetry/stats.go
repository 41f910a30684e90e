// Package telemetry samples the updater's own resource usage and sends an
// anonymous summary of a run when the user opted in.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"time"

	"github.com/imroc/req/v3"
	"github.com/shirou/gopsutil/v4/host"

	"github.com/sershocode/supdater/internal/utils"
	"github.com/sershocode/supdater/internal/version"
	"github.com/sershocode/supdater/internal/webclient"
)

var ErrNoStatsURL = errors.New("telemetry: stats url missing")

// Stats is the anonymous run summary.
type Stats struct {
	OperationSystem          string    `json:"OperationSystem"`
	FileHandledCount         int       `json:"FileHandledCount"`
	DownloadedMegabytes      float64   `json:"DownloadedMegabytes"`
	MaxCpuLoadPercentage     float64   `json:"MaxCpuLoadPercentage"`
	AverageCpuLoadPercentage float64   `json:"AverageCpuLoadPercentage"`
	MaxRamLoadMegabytes      float64   `json:"MaxRamLoadMegabytes"`
	AverageRamLoadMegabytes  float64   `json:"AverageRamLoadMegabytes"`
	UpdateTimeMinutes        float64   `json:"UpdateTimeMinutes"`
	UpdateDate               time.Time `json:"UpdateDate"`
	AppVersion               string    `json:"AppVersion"`
	InstallId                string    `json:"InstallId"`
}

// Run is what the stats document needs to know about a finished run.
type Run struct {
	Files           int
	DownloadedBytes int64
	Duration        time.Duration
	Finished        time.Time
}

func NewStats(osName string, run Run, load Load) *Stats {
	return &Stats{
		OperationSystem:          osName,
		FileHandledCount:         run.Files,
		DownloadedMegabytes:      float64(run.DownloadedBytes) / 1024 / 1024,
		MaxCpuLoadPercentage:     load.MaxCPU,
		AverageCpuLoadPercentage: load.AverageCPU,
		MaxRamLoadMegabytes:      load.MaxRAM,
		AverageRamLoadMegabytes:  load.AverageRAM,
		UpdateTimeMinutes:        run.Duration.Minutes(),
		UpdateDate:               run.Finished.UTC(),
		AppVersion:               version.Version,
		InstallId:                utils.HWID,
	}
}

// OSName returns a human readable name of the host OS.
func OSName(ctx context.Context) string {
	info, err := host.InfoWithContext(ctx)
	if err != nil || info.Platform == "" {
		return "Unknown OS (" + runtime.GOOS + ")"
	}
	return strings.TrimSpace(info.Platform + " " + info.PlatformVersion)
}

type Sender struct {
	url    string
	client *req.Client
}

func NewSender(url string, client *req.Client) (*Sender, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, ErrNoStatsURL
	}
	if client == nil {
		client = webclient.New()
	}
	return &Sender{url: url, client: client}, nil
}

func (s *Sender) Send(ctx context.Context, stats *Stats) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetBody(stats).
		Post(s.url)
	if err != nil {
		return fmt.Errorf("telemetry: send: %w", err)
	}
	if resp.IsErrorState() {
		return fmt.Errorf("telemetry: send: %s", resp.Status)
	}
	slog.Debug("telemetry sent", "url", s.url)
	return nil
}
