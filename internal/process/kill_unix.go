//go:build !windows

package process

import (
	"errors"
	"syscall"
)

// killTree signals the process group led by pid. The browser launcher starts
// Chromium as a group leader, so renderer and GPU children go with it.
func killTree(pid int) error {
	err := syscall.Kill(-pid, syscall.SIGKILL)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}
