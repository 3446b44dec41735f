package sessionmanager

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// Stop terminates the session process recorded in the PID file, optionally
// removing the file afterwards. A process that is already gone is not an
// error.
func (m *SessionManager) Stop(pidFile string, remove bool) error {
	content, err := os.ReadFile(pidFile)
	if err != nil {
		return fmt.Errorf("reading PID file %s: %w", pidFile, err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(content)))
	if err != nil {
		return fmt.Errorf("PID file %s content is not an integer: %w", pidFile, err)
	}

	m.logger.Warn("terminating running process", "pid", pid)
	proc, err := os.FindProcess(pid)
	if err == nil {
		err = proc.Signal(syscall.SIGTERM)
	}
	if err != nil && !errors.Is(err, os.ErrProcessDone) {
		m.logger.Warn("process not terminated", "pid", pid, "error", err)
	}

	if remove {
		if err := os.Remove(pidFile); err != nil {
			return fmt.Errorf("removing PID file %s: %w", pidFile, err)
		}
		m.logger.Info("removed PID file", "path", pidFile)
	}
	return nil
}
