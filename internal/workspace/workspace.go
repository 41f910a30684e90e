// Package workspace describes the local tree kept in sync with the remote folder.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
	"github.com/sershocode/supdater/internal/utils"
)

const (
	// LockFileName sits in the root while a run is active.
	LockFileName = ".supdater.lock"
	// BackupSuffix is appended to the executable name while it is being replaced.
	BackupSuffix = ".bak"
)

var (
	ErrWorkspaceLocked = errors.New("workspace locked by another process")
)

type Workspace struct {
	// Root is the absolute local directory mirrored from the remote folder.
	Root string
	// Executable is the absolute path of the running binary.
	Executable string
	// ConfigPath is the absolute path of the loaded config file, if any.
	ConfigPath string

	flock *flock.Flock
}

func NewWorkspace(rootDir, executable, configPath string) (*Workspace, error) {
	root, err := utils.ResolvePath(rootDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path %s: %w", rootDir, err)
	}

	if executable != "" {
		if executable, err = filepath.Abs(executable); err != nil {
			return nil, fmt.Errorf("failed to resolve executable: %w", err)
		}
	}
	if configPath != "" {
		if configPath, err = filepath.Abs(configPath); err != nil {
			return nil, fmt.Errorf("failed to resolve config path: %w", err)
		}
	}

	return &Workspace{
		Root:       root,
		Executable: executable,
		ConfigPath: configPath,
		flock:      flock.New(filepath.Join(root, LockFileName)),
	}, nil
}

// Lock prevents a second updater from working on the same root.
func (w *Workspace) Lock() error {
	if err := utils.EnsureDir(w.Root); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", w.Root, err)
	}

	locked, err := w.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to lock workspace: %w", err)
	}
	if !locked {
		return ErrWorkspaceLocked
	}

	return nil
}

func (w *Workspace) Unlock() error {
	// if this process hasn't locked the workspace, then don't delete the lock file
	if !w.flock.Locked() {
		return nil
	}

	if err := w.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to unlock workspace: %w", err)
	}

	return os.Remove(w.flock.Path())
}

// BackupPath is where the running executable is parked during a self-update.
func (w *Workspace) BackupPath() string {
	return w.Executable + BackupSuffix
}

// SelfIgnore lists the root-relative paths that are never deleted:
// the executable, its backup, the config file and the lock file.
func (w *Workspace) SelfIgnore() []string {
	candidates := []string{filepath.Join(w.Root, LockFileName)}
	if w.Executable != "" {
		candidates = append(candidates, w.Executable, w.BackupPath())
	}
	if w.ConfigPath != "" {
		candidates = append(candidates, w.ConfigPath)
	}

	var out []string
	for _, abs := range candidates {
		if rel, ok := utils.RelSlash(w.Root, abs); ok {
			out = append(out, rel)
		}
	}
	return out
}

// AbsPath turns a forward-slash relative path into a host path under Root.
func (w *Workspace) AbsPath(rel string) string {
	return filepath.Join(w.Root, filepath.FromSlash(rel))
}

// NormPath normalizes a path by cleaning it, replacing backslashes with slashes, and trimming leading slashes
func NormPath(path string) string {
	path = filepath.Clean(path)
	path = strings.ReplaceAll(path, "\\", "/")
	path = strings.TrimLeft(path, "/")
	return path
}
