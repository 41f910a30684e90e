// Package selfupdate replaces the running executable with the latest published release.
//
// A release lives at <base>/<product>/<platform>/<product>.zip next to a
// <product>.manifest.json document carrying the MD5 hash of the released
// executable. Any difference from the local hash means an update is available.
package selfupdate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/imroc/req/v3"

	"github.com/sershocode/supdater/internal/utils"
	"github.com/sershocode/supdater/internal/version"
	"github.com/sershocode/supdater/internal/webclient"
)

const (
	PlatformWindows = "win-x64"
	PlatformLinux   = "linux-x64"

	manifestSuffix = ".manifest.json"
	archiveSuffix  = ".zip"
	tempDirSuffix  = "_Temp"
	backupSuffix   = ".bak"
)

var (
	ErrNoUpdateURL        = errors.New("selfupdate: update url missing")
	ErrNoExecutable       = errors.New("selfupdate: executable path missing")
	ErrEmptyManifest      = errors.New("selfupdate: manifest has no hash")
	ErrUpdateNotAvailable = errors.New("selfupdate: already up to date")
	ErrSwapInterrupted    = errors.New("selfupdate: swap interrupted, previous version kept as backup")
)

// Manifest is the release descriptor published next to the archive.
type Manifest struct {
	Md5Hash string `json:"Md5Hash"`
}

type Options struct {
	// BaseURL is the configured update address, without trailing slash.
	BaseURL string
	// Executable is the absolute path of the running binary.
	Executable string
	// ConfigName is the config file name; archive entries containing its stem are never extracted.
	ConfigName string
	// Product defaults to version.AppName.
	Product string
	// Platform defaults to Platform().
	Platform string
	Client   *req.Client
}

type Updater struct {
	baseURL    string
	exe        string
	configStem string
	product    string
	platform   string
	client     *req.Client
	swap       swapper
}

func New(opts Options) (*Updater, error) {
	base := strings.TrimSuffix(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, ErrNoUpdateURL
	}
	if opts.Executable == "" {
		return nil, ErrNoExecutable
	}

	product := opts.Product
	if product == "" {
		product = version.AppName
	}
	platform := opts.Platform
	if platform == "" {
		platform = Platform()
	}
	client := opts.Client
	if client == nil {
		client = webclient.New()
	}

	return &Updater{
		baseURL:    base,
		exe:        opts.Executable,
		configStem: strings.TrimSuffix(opts.ConfigName, filepath.Ext(opts.ConfigName)),
		product:    product,
		platform:   platform,
		client:     client,
		swap:       defaultSwapper(),
	}, nil
}

// Platform names the release flavour of the host.
func Platform() string {
	if runtime.GOOS == "windows" {
		return PlatformWindows
	}
	return PlatformLinux
}

func (u *Updater) ArchiveURL() string {
	return fmt.Sprintf("%s/%s/%s/%s%s", u.baseURL, u.product, u.platform, u.product, archiveSuffix)
}

func (u *Updater) ManifestURL() string {
	return fmt.Sprintf("%s/%s/%s/%s%s", u.baseURL, u.product, u.platform, u.product, manifestSuffix)
}

// BackupPath is where the previous executable is kept after a swap.
func (u *Updater) BackupPath() string {
	return u.exe + backupSuffix
}

// TempDir is the staging directory, a sibling of the executable.
func (u *Updater) TempDir() string {
	name := strings.TrimSuffix(filepath.Base(u.exe), ".exe")
	return filepath.Join(filepath.Dir(u.exe), name+tempDirSuffix)
}

// Check reports whether the published release differs from the running binary.
func (u *Updater) Check(ctx context.Context) (bool, error) {
	local, err := utils.FileHash(u.exe)
	if err != nil {
		return false, fmt.Errorf("selfupdate: hash executable: %w", err)
	}

	manifest, err := u.fetchManifest(ctx)
	if err != nil {
		return false, err
	}

	available := !strings.EqualFold(strings.TrimSpace(manifest.Md5Hash), local)
	slog.Debug("selfupdate check", "local", local, "remote", manifest.Md5Hash, "available", available)
	return available, nil
}

func (u *Updater) fetchManifest(ctx context.Context) (*Manifest, error) {
	url := u.ManifestURL()
	resp, err := u.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("selfupdate: fetch manifest %q: %w", url, err)
	}
	if resp.IsErrorState() {
		return nil, fmt.Errorf("selfupdate: fetch manifest %q: %s", url, resp.Status)
	}

	body, err := resp.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("selfupdate: read manifest: %w", err)
	}

	var manifest Manifest
	if err := webclient.JSONUnmarshal(body, &manifest); err != nil {
		return nil, fmt.Errorf("selfupdate: decode manifest: %w", err)
	}
	if strings.TrimSpace(manifest.Md5Hash) == "" {
		return nil, ErrEmptyManifest
	}
	return &manifest, nil
}

// Update checks for a release and installs it. It returns ErrUpdateNotAvailable
// when the running binary is current.
func (u *Updater) Update(ctx context.Context) error {
	available, err := u.Check(ctx)
	if err != nil {
		return err
	}
	if !available {
		return ErrUpdateNotAvailable
	}
	return u.Apply(ctx)
}

// Apply downloads, unpacks and installs the release over the running executable.
// After it returns nil the caller is expected to Relaunch.
func (u *Updater) Apply(ctx context.Context) error {
	tempDir := u.TempDir()

	if err := u.prepare(tempDir); err != nil {
		return err
	}

	archive := filepath.Join(tempDir, u.product+archiveSuffix)
	if err := u.download(ctx, archive); err != nil {
		return err
	}

	if err := extractArchive(archive, tempDir, u.configStem); err != nil {
		return fmt.Errorf("selfupdate: extract: %w", err)
	}

	staged, err := u.stage(tempDir)
	if err != nil {
		return err
	}

	if err := u.swap.swap(staged, u.exe, u.BackupPath()); err != nil {
		return err
	}
	slog.Info("selfupdate installed", "exe", u.exe, "backup", u.BackupPath())

	if err := utils.RemoveIfExists(tempDir); err != nil {
		slog.Warn("selfupdate cleanup", "dir", tempDir, "error", err)
	}
	return nil
}

// prepare removes the previous backup and staging directory and creates a fresh one.
func (u *Updater) prepare(tempDir string) error {
	if err := utils.RemoveIfExists(u.BackupPath()); err != nil {
		return fmt.Errorf("selfupdate: remove stale backup: %w", err)
	}
	if err := utils.RemoveIfExists(tempDir); err != nil {
		return fmt.Errorf("selfupdate: remove stale temp dir: %w", err)
	}
	if err := utils.EnsureDir(tempDir); err != nil {
		return fmt.Errorf("selfupdate: create temp dir: %w", err)
	}
	return nil
}

func (u *Updater) download(ctx context.Context, dst string) error {
	url := u.ArchiveURL()
	resp, err := u.client.R().
		SetContext(ctx).
		SetOutputFile(dst).
		Get(url)
	if err != nil {
		return fmt.Errorf("selfupdate: download %q: %w", url, err)
	}
	if resp.IsErrorState() {
		return fmt.Errorf("selfupdate: download %q: %s", url, resp.Status)
	}
	slog.Info("selfupdate downloaded", "url", url, "path", dst)
	return nil
}

// stage returns the extracted executable, renamed to match the running binary
// when the user renamed it.
func (u *Updater) stage(tempDir string) (string, error) {
	canonical := filepath.Join(tempDir, u.product+exeSuffix())
	staged := filepath.Join(tempDir, filepath.Base(u.exe))

	if !utils.FileExists(canonical) {
		return "", fmt.Errorf("selfupdate: archive has no %s", filepath.Base(canonical))
	}

	if canonical != staged {
		if err := os.Rename(canonical, staged); err != nil {
			return "", fmt.Errorf("selfupdate: rename to %s: %w", filepath.Base(staged), err)
		}
	}

	if err := os.Chmod(staged, 0o755); err != nil {
		return "", fmt.Errorf("selfupdate: chmod: %w", err)
	}
	return staged, nil
}

func exeSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}
