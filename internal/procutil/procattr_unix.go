//go:build !windows

package procutil

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcAttr puts a spawned helper in its own process group so that a
// signal delivered to teip (SIGINT, SIGPIPE) does not propagate to
// helpers still draining their own output.
func setProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup kills the process group of pid, used when a helper
// must be torn down along with any children it spawned after the
// intercepter has already given up on it.
func killProcessGroup(pid int) error {
	return unix.Kill(-pid, syscall.SIGKILL)
}
