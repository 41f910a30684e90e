//go:build windows

package selfupdate

import (
	"os"
	"os/exec"
)

// Relaunch starts the installed executable in the current console and exits.
// It only returns on failure.
func (u *Updater) Relaunch() error {
	cmd := exec.Command(u.exe, os.Args[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return err
	}
	os.Exit(0)
	return nil
}
