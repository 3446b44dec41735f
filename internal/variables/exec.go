package variables

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// BuildEnv merges loaded variables into the current process environment.
// Existing environment variables win unless overwrite is set.
func BuildEnv(vars map[string]string, overwrite bool) []string {
	existing := make(map[string]bool)
	env := os.Environ()
	for _, kv := range env {
		name, _, ok := strings.Cut(kv, "=")
		if ok {
			existing[name] = true
		}
	}

	for name, value := range vars {
		if existing[name] && !overwrite {
			continue
		}
		if existing[name] {
			env = replaceEnv(env, name, value)
			continue
		}
		env = append(env, name+"="+value)
	}
	return env
}

func replaceEnv(env []string, name, value string) []string {
	prefix := name + "="
	for i, kv := range env {
		if strings.HasPrefix(kv, prefix) {
			env[i] = prefix + value
		}
	}
	return env
}

// resolveCommand locates the command binary on PATH.
func resolveCommand(argv []string) (string, error) {
	if len(argv) == 0 {
		return "", fmt.Errorf("no command given")
	}
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return "", fmt.Errorf("resolving command %s: %w", argv[0], err)
	}
	return path, nil
}
