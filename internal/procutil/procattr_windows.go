//go:build windows

package procutil

import "os/exec"

// setProcAttr is a no-op on Windows; process groups are a Unix job-control
// concept and helpers there are torn down individually.
func setProcAttr(cmd *exec.Cmd) {}

// killProcessGroup is a no-op on Windows; there is no process-group kill
// to perform here, Close relies on Wait after Stdin is closed.
func killProcessGroup(pid int) error { return nil }
