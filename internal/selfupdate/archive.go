package selfupdate

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// extractArchive flattens every file entry of the zip into dst. Entries whose
// name contains skipStem are left out so a local config is never overwritten.
func extractArchive(archive, dst, skipStem string) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return fmt.Errorf("zip open %q: %w", archive, err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}

		name := path.Base(strings.ReplaceAll(f.Name, "\\", "/"))
		if name == "." || name == "/" || name == ".." {
			continue
		}
		if skipStem != "" && strings.Contains(name, skipStem) {
			slog.Debug("selfupdate skip entry", "name", f.Name)
			continue
		}

		if err := extractFile(f, filepath.Join(dst, name)); err != nil {
			return err
		}
	}
	return nil
}

func extractFile(f *zip.File, target string) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("zip open file %q: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("zip extract file %q: %w", target, err)
	}

	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return fmt.Errorf("zip extract file %q: %w", f.Name, err)
	}
	return out.Close()
}
