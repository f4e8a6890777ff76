//go:build !windows

package cmd

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr detaches the child from the controlling terminal so it
// survives the parent's exit.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
