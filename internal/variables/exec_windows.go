//go:build windows

package variables

import (
	"os"
	"os/exec"
)

// ExecCommand runs argv with the given environment and exits with the child's
// exit code. Windows has no process replacement, so the parent lingers until
// the child finishes.
func ExecCommand(argv []string, env []string) error {
	path, err := resolveCommand(argv)
	if err != nil {
		return err
	}

	cmd := exec.Command(path, argv[1:]...)
	cmd.Env = env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			os.Exit(exitErr.ExitCode())
		}
		return err
	}
	os.Exit(0)
	return nil
}
