package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sershocode/supdater/internal/config"
	"github.com/sershocode/supdater/internal/remote"
	"github.com/sershocode/supdater/internal/selfupdate"
	"github.com/sershocode/supdater/internal/telemetry"
	"github.com/sershocode/supdater/internal/updater"
	"github.com/sershocode/supdater/internal/utils"
	"github.com/sershocode/supdater/internal/webclient"
	"github.com/sershocode/supdater/internal/workspace"
)

const countdownSeconds = 10

type runOpts struct {
	dryRun bool
	// preview never asks questions and never self-updates
	preview bool
}

func runSync(cmd *cobra.Command, opts runOpts) error {
	ctx := cmd.Context()

	cfg, root, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	con := newConsole(cmd.OutOrStdout(), cmd.InOrStdin(), !cfg.IsSilentMode && !opts.preview)
	con.dryRun = opts.dryRun

	exe, err := executablePath()
	if err != nil {
		return err
	}
	ws, err := workspace.NewWorkspace(root, exe, cfg.Path)
	if err != nil {
		return err
	}

	if cfg.SelfUpdateEnabled() && !opts.dryRun && !opts.preview {
		if err := preflightUpdate(ctx, con, cfg, ws); err != nil {
			return err
		}
	}

	if con.interactive {
		if err := confirmSettings(ctx, con, cfg, ws.Root); err != nil {
			return err
		}
	} else {
		con.Println(gray.Render("Silent mode"))
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	slog.Info("config",
		"path", cfg.Path,
		"addr", cfg.FtpAddress,
		"folder", cfg.SyncFolder,
		"user", cfg.User,
		"password", utils.MaskSecret(cfg.Password),
		"silent", cfg.IsSilentMode,
		"dryRun", opts.dryRun,
	)

	user := cfg.User
	if user == "" {
		user = "anonymous"
	}
	con.Println(cyan.Render(fmt.Sprintf("Syncing with %s/%s (%s)", cfg.FtpAddress, cfg.SyncFolder, user)))

	if con.interactive {
		if err := con.Countdown(ctx, countdownSeconds); err != nil {
			return err
		}
	}

	if err := ws.Lock(); err != nil {
		return err
	}
	defer ws.Unlock()

	rules, err := updater.NewRules(cfg.DownloadIgnore, cfg.DownloadOnlyIfNotExists, cfg.DeleteIgnore)
	if err != nil {
		return err
	}

	u, err := updater.New(updater.Options{
		Dialer: remote.NewFTPDialer(remote.FTPConfig{
			Addr:           cfg.FtpAddress,
			User:           cfg.User,
			Password:       cfg.Password,
			ConnectTimeout: cfg.ConnectTimeout(),
			IdleTimeout:    cfg.IdleTimeout(),
		}),
		SyncFolder: cfg.SyncFolder,
		Fs:         afero.NewBasePathFs(afero.NewOsFs(), ws.Root),
		Rules:      rules,
		SelfIgnore: ws.SelfIgnore(),
		DryRun:     opts.dryRun,
		Reporter:   con,
	})
	if err != nil {
		return err
	}

	con.Println(lightGray.Render("Local folder: " + ws.Root))

	var sampler *telemetry.Sampler
	if cfg.IsSendAnonymousStatistics && !opts.dryRun {
		sampler = startSampler(ctx)
	}

	res, err := u.Run(ctx)
	var load telemetry.Load
	if sampler != nil {
		if stopErr := sampler.Stop(); stopErr != nil {
			slog.Debug("sampler stop", "error", stopErr)
		}
		load = sampler.Load()
	}
	if err != nil {
		return err
	}

	con.Summary(res)

	if sampler != nil {
		sendStats(ctx, con, cfg, res, load)
	}

	con.Println(green.Render("Application can be closed"))
	if con.interactive {
		return con.WaitEnter(ctx, "Press Enter to exit")
	}
	return nil
}

// preflightUpdate installs a newer release before the sync starts.
// Update failures are reported and never stop the sync.
func preflightUpdate(ctx context.Context, con *Console, cfg *config.Config, ws *workspace.Workspace) error {
	su, err := newSelfUpdater(cfg, ws.Executable)
	if err != nil {
		return err
	}

	con.Status(gray.Render("Checking for updates..."))
	err = su.Update(ctx)
	switch {
	case err == nil:
		con.Println(green.Render("Update installed, restarting"))
		if err := su.Relaunch(); err != nil {
			slog.Error("relaunch", "exe", ws.Executable, "error", err)
			con.Println(red.Render("Restart failed, continuing with the running version: " + err.Error()))
		}
	case errors.Is(err, selfupdate.ErrUpdateNotAvailable):
		con.Println(gray.Render("SUpdater is up to date"))
	case errors.Is(err, context.Canceled):
		return err
	default:
		slog.Warn("self-update", "url", cfg.AppUpdateUrl, "error", err)
		con.Println(red.Render("Self-update failed: " + err.Error()))
		if con.interactive {
			return con.WaitEnter(ctx, "Press Enter to continue")
		}
	}
	return nil
}

// confirmSettings shows the deletion warning and lets the user override the
// connection settings for this run.
func confirmSettings(ctx context.Context, con *Console, cfg *config.Config, root string) error {
	con.Println(red.Bold(true).Render("WARNING: every file in " + root + " that is not on the server will be deleted!"))
	if err := con.WaitEnter(ctx, "Press Enter to continue"); err != nil {
		return err
	}

	ok, err := con.Confirm(ctx, fmt.Sprintf("Use settings from %s? (Enter = yes, n = enter manually)", filepath.Base(cfg.Path)))
	if err != nil || ok {
		return err
	}
	return runSettingsTUI(ctx, cfg)
}

func newSelfUpdater(cfg *config.Config, exe string) (*selfupdate.Updater, error) {
	return selfupdate.New(selfupdate.Options{
		BaseURL:    cfg.AppUpdateUrl,
		Executable: exe,
		ConfigName: filepath.Base(cfg.Path),
		Client:     webclient.New(),
	})
}

func startSampler(ctx context.Context) *telemetry.Sampler {
	sampler, err := telemetry.NewSampler(telemetry.DefaultInterval)
	if err != nil {
		slog.Debug("sampler", "error", err)
		return nil
	}
	sampler.Start(ctx)
	return sampler
}

func sendStats(ctx context.Context, con *Console, cfg *config.Config, res *updater.Result, load telemetry.Load) {
	sender, err := telemetry.NewSender(cfg.StatsUrl, webclient.New())
	if err != nil {
		slog.Debug("stats disabled", "error", err)
		return
	}

	stats := telemetry.NewStats(telemetry.OSName(ctx), telemetry.Run{
		Files:           res.RemoteFiles,
		DownloadedBytes: res.DownloadedBytes,
		Duration:        res.Duration,
		Finished:        time.Now(),
	}, load)
	if err := sender.Send(ctx, stats); err != nil {
		slog.Warn("stats", "url", cfg.StatsUrl, "error", err)
		con.Println(gray.Render("Could not send anonymous statistics"))
	}
}

func executablePath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to locate executable: %w", err)
	}
	return filepath.EvalSymlinks(exe)
}

// describeError turns the errors a user can act on into plain sentences.
func describeError(err error) string {
	switch {
	case errors.Is(err, ErrConfigNotFound):
		return err.Error() + ", put " + config.DefaultFileName + " next to the files to sync or pass --config"
	case errors.Is(err, workspace.ErrWorkspaceLocked):
		return "another SUpdater is already running in this folder"
	case errors.Is(err, updater.ErrSyncRootUnavailable):
		return "the sync folder does not exist on the server: " + err.Error()
	case errors.Is(err, errSettingsCancelled):
		return "cancelled"
	case remote.IsConnectTimeout(err):
		return "the server did not answer: " + err.Error()
	case remote.IsTimeout(err):
		return "the transfer kept timing out: " + err.Error()
	default:
		return err.Error()
	}
}
