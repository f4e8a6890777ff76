package watch

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

// PIDFile is where a backgrounded daemon records its process id, relative to
// the output directory.
const PIDFile = ".specifier.pid"

// PIDPath returns the pid file location for an output directory.
func PIDPath(outDir string) string {
	return filepath.Join(outDir, PIDFile)
}

// WritePID records pid for a running daemon.
func WritePID(outDir string, pid int) error {
	return os.WriteFile(PIDPath(outDir), []byte(strconv.Itoa(pid)), 0644)
}

// ReadPID returns the recorded daemon pid.
func ReadPID(outDir string) (int, error) {
	data, err := os.ReadFile(PIDPath(outDir))
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("malformed pid file %s: %w", PIDPath(outDir), err)
	}
	return pid, nil
}

// RemovePID deletes the pid file. A missing file is not an error.
func RemovePID(outDir string) error {
	err := os.Remove(PIDPath(outDir))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// IsRunning reports whether the daemon recorded in the pid file is alive.
func IsRunning(outDir string) bool {
	pid, err := ReadPID(outDir)
	if err != nil {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// Stop signals the recorded daemon to terminate and removes the pid file.
func Stop(outDir string) error {
	pid, err := ReadPID(outDir)
	if err != nil {
		return err
	}
	if proc, err := os.FindProcess(pid); err == nil {
		if err := proc.Signal(syscall.SIGTERM); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("signal pid %d: %w", pid, err)
		}
	}
	return RemovePID(outDir)
}
