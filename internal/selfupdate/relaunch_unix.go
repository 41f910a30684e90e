//go:build !windows

package selfupdate

import (
	"os"
	"syscall"
)

// Relaunch replaces the current process image with the installed executable.
// It only returns on failure.
func (u *Updater) Relaunch() error {
	return syscall.Exec(u.exe, os.Args, os.Environ())
}
