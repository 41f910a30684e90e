package selfupdate

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"

	"github.com/sershocode/supdater/internal/utils"
)

// swapper installs a staged binary over the target, keeping the old one as backup.
type swapper struct {
	rename func(oldpath, newpath string) error
	link   func(oldname, newname string) error
	// replace allows renaming over an existing target. Windows refuses that
	// for a running executable.
	replace bool
}

func defaultSwapper() swapper {
	return swapper{
		rename:  os.Rename,
		link:    os.Link,
		replace: runtime.GOOS != "windows",
	}
}

// swap prefers a hard-link backup followed by a single rename over the
// target, so the target path always names a complete binary. Without
// hard-link support it falls back to rename-to-backup then rename-into-place.
func (s swapper) swap(staged, target, backup string) error {
	if s.replace {
		err := s.link(target, backup)
		if err == nil {
			if err := s.rename(staged, target); err != nil {
				return fmt.Errorf("selfupdate: install %s: %w", target, err)
			}
			return nil
		}
		slog.Debug("selfupdate hard link unavailable", "error", err)
	}

	if err := s.rename(target, backup); err != nil {
		return fmt.Errorf("selfupdate: backup %s: %w", target, err)
	}

	if err := s.rename(staged, target); err != nil {
		// the target is gone; put a copy back and keep the backup for manual recovery
		if cerr := utils.CopyFile(backup, target); cerr != nil {
			slog.Error("selfupdate restore", "backup", backup, "error", cerr)
		}
		return fmt.Errorf("%w: %s: %w", ErrSwapInterrupted, backup, err)
	}
	return nil
}
