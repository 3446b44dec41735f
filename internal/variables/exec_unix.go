//go:build unix

package variables

import (
	"fmt"
	"syscall"
)

// ExecCommand replaces the current process with argv, running it with the
// given environment. It only returns on error.
func ExecCommand(argv []string, env []string) error {
	path, err := resolveCommand(argv)
	if err != nil {
		return err
	}
	if err := syscall.Exec(path, argv, env); err != nil {
		return fmt.Errorf("exec %s: %w", path, err)
	}
	return nil
}
