// Package process terminates the headless browser process tree left behind
// by the rasterizer.
package process

import "errors"

// ErrInvalidPID is returned for pids that would address the caller's own
// process group.
var ErrInvalidPID = errors.New("invalid pid")

// KillTree kills pid and all of its children.
func KillTree(pid int) error {
	if pid <= 0 {
		return ErrInvalidPID
	}
	return killTree(pid)
}
