package sessionmanager

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writePIDFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.pid")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestStop_ProcessAlreadyGone(t *testing.T) {
	// PID 1 cannot be signalled by an unprivileged test and a huge PID does
	// not exist; either way Stop tolerates the failed signal.
	path := writePIDFile(t, "4194000\n")
	m := New()

	err := m.Stop(path, false)
	require.NoError(t, err)
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestStop_RemovesPIDFile(t *testing.T) {
	path := writePIDFile(t, "4194000")
	m := New()

	require.NoError(t, m.Stop(path, true))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestStop_MissingPIDFile(t *testing.T) {
	m := New()
	err := m.Stop(filepath.Join(t.TempDir(), "missing.pid"), false)
	assert.Error(t, err)
}

func TestStop_MalformedPIDFile(t *testing.T) {
	path := writePIDFile(t, "not-a-pid")
	m := New()

	err := m.Stop(path, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not an integer")
}
