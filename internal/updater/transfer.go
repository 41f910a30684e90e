package updater

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/afero"

	"github.com/sershocode/supdater/internal/remote"
)

const tempSuffix = ".supdater.tmp."

// needsDownload applies the per-file decision: a missing file is fetched, a file
// matching the only-if-missing rules is never overwritten, otherwise size decides.
func (u *Updater) needsDownload(rel string, entry remote.Entry) (bool, error) {
	info, err := u.fs.Stat(filepath.FromSlash(rel))
	if errors.Is(err, os.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) {
		// a local file standing on the parent path is replaced by fetch
		return true, nil
	} else if err != nil {
		return false, fmt.Errorf("stat %s: %w", rel, err)
	}

	if u.rules.OnlyIfMissing(rel) {
		return false, nil
	}
	if remote.SizeMatches(entry, info) {
		return false, nil
	}
	return true, nil
}

// download fetches one file under the transfer policy. Each attempt starts over
// from a fresh session resolved after a possible reconnect.
func (u *Updater) download(ctx context.Context, rel string, entry remote.Entry) (int64, error) {
	var written int64
	err := u.transferPolicy.Do(ctx, func(ctx context.Context) error {
		n, err := u.fetch(ctx, rel, entry.Path)
		written = n
		return err
	})
	return written, err
}

// fetch streams the remote file into a sibling temp file and renames it over
// the target, so an interrupted transfer never leaves a truncated file behind.
func (u *Updater) fetch(ctx context.Context, rel, remotePath string) (int64, error) {
	sess, err := u.conn.Session()
	if err != nil {
		return 0, err
	}

	name := filepath.FromSlash(rel)
	dir, base := filepath.Split(name)
	if dir == "" {
		dir = "."
	}

	// a local directory standing where the remote has a file
	if info, err := u.fs.Stat(name); err == nil && info.IsDir() {
		slog.Warn("sync", "op", "replace-dir", "path", rel)
		if err := u.fs.RemoveAll(name); err != nil {
			return 0, fmt.Errorf("remove directory %s: %w", rel, err)
		}
	}

	if err := u.clearParents(dir); err != nil {
		return 0, err
	}
	if err := u.fs.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create directory for %s: %w", rel, err)
	}

	rc, err := sess.Retrieve(ctx, remotePath)
	if err != nil {
		return 0, err
	}

	tmp, err := afero.TempFile(u.fs, dir, base+tempSuffix+"*")
	if err != nil {
		_ = rc.Close()
		return 0, fmt.Errorf("create temp file for %s: %w", rel, err)
	}
	tmpName := tmp.Name()

	n, copyErr := io.Copy(tmp, rc)
	closeErr := rc.Close()
	tmpErr := tmp.Close()

	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = u.fs.Remove(tmpName)
		return n, err
	}
	if tmpErr != nil {
		_ = u.fs.Remove(tmpName)
		return n, fmt.Errorf("write %s: %w", rel, tmpErr)
	}

	// temp files are created owner-only; an overwritten file keeps its mode
	perm := os.FileMode(0o644)
	if info, err := u.fs.Stat(name); err == nil && info.Mode().IsRegular() {
		perm = info.Mode().Perm()
	}
	_ = u.fs.Chmod(tmpName, perm)

	if err := u.fs.Rename(tmpName, name); err != nil {
		_ = u.fs.Remove(tmpName)
		return n, fmt.Errorf("rename %s: %w", rel, err)
	}
	return n, nil
}

// clearParents removes a local file standing where the remote has a directory,
// so MkdirAll can create the parent chain of a download.
func (u *Updater) clearParents(dir string) error {
	cur := ""
	for _, part := range strings.Split(filepath.Clean(dir), string(filepath.Separator)) {
		if part == "" || part == "." {
			continue
		}
		cur = filepath.Join(cur, part)

		info, err := u.fs.Stat(cur)
		if err != nil {
			// missing from here on, MkdirAll creates the rest
			return nil
		}
		if info.IsDir() {
			continue
		}

		rel := filepath.ToSlash(cur)
		slog.Warn("sync", "op", "replace-file", "path", rel)
		if info.Mode().Perm()&0o200 == 0 {
			_ = u.fs.Chmod(cur, info.Mode().Perm()|0o200)
		}
		if err := u.fs.Remove(cur); err != nil {
			return fmt.Errorf("remove file %s: %w", rel, err)
		}
		return nil
	}
	return nil
}
