package updater

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// applyDeletions removes every planned path. Files go first, then directories
// deepest first. Paths already gone are skipped, so a second run is a no-op.
func (u *Updater) applyDeletions(ctx context.Context, plan *DeletionPlan, res *Result) error {
	for _, rel := range plan.Files {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := filepath.FromSlash(rel)
		info, err := u.fs.Stat(name)
		if errors.Is(err, os.ErrNotExist) {
			continue
		} else if err != nil {
			return fmt.Errorf("stat %s: %w", rel, err)
		}

		u.reporter.Deleting(rel, false)

		// clear read-only so removal does not fail on platforms that honor it
		if info.Mode().Perm()&0o200 == 0 {
			if err := u.fs.Chmod(name, info.Mode().Perm()|0o200); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("chmod %s: %w", rel, err)
			}
		}

		if err := u.fs.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete file %s: %w", rel, err)
		}
		res.DeletedFiles++
		slog.Info("sync", "op", "delete", "path", rel)
	}

	for _, rel := range plan.Dirs {
		if err := ctx.Err(); err != nil {
			return err
		}

		name := filepath.FromSlash(rel)
		if _, err := u.fs.Stat(name); errors.Is(err, os.ErrNotExist) {
			continue
		}

		u.reporter.Deleting(rel, true)
		if err := u.fs.RemoveAll(name); err != nil {
			return fmt.Errorf("delete directory %s: %w", rel, err)
		}
		res.DeletedDirs++
		slog.Info("sync", "op", "delete", "path", rel, "dir", true)
	}

	return nil
}
