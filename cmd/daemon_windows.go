//go:build windows

package cmd

import (
	"os/exec"
	"syscall"
)

// setSysProcAttr detaches the child into its own process group so it
// survives the parent's exit.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}
