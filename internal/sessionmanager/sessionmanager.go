// Package sessionmanager installs and manages the AWS Session Manager plugin
// binary.
package sessionmanager

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"regexp"
	"strings"
	"time"
)

const binaryName = "session-manager-plugin"

// versionPattern matches the plugin's --version output, e.g. "1.2.536.0".
var versionPattern = regexp.MustCompile(`^[0-9][0-9.]*`)

// ErrUnsupportedPlatform indicates the current OS, distribution or
// architecture has no known installer.
var ErrUnsupportedPlatform = errors.New("unsupported platform")

// ErrInstallAborted indicates the confirmation hook declined the install
// command.
var ErrInstallAborted = errors.New("installation aborted")

// ConfirmFunc is invoked with the install command before it runs. Returning
// an error aborts the installation.
type ConfirmFunc func(command []string) error

// SessionManager verifies and installs the Session Manager plugin.
type SessionManager struct {
	logger     *slog.Logger
	httpClient *http.Client
	confirm    ConfirmFunc
	run        func(ctx context.Context, dir string, argv []string) error
	dryRun     bool
}

// Option configures a SessionManager.
type Option func(*SessionManager)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *SessionManager) { m.logger = l }
}

// WithHTTPClient sets the client used to download installers.
func WithHTTPClient(c *http.Client) Option {
	return func(m *SessionManager) { m.httpClient = c }
}

// WithConfirm sets the hook invoked before running an install command.
func WithConfirm(fn ConfirmFunc) Option {
	return func(m *SessionManager) { m.confirm = fn }
}

// WithCommandRunner sets a custom command runner (useful for testing).
func WithCommandRunner(run func(ctx context.Context, dir string, argv []string) error) Option {
	return func(m *SessionManager) { m.run = run }
}

// WithDryRun skips install command invocation, logging it instead.
func WithDryRun(dryRun bool) Option {
	return func(m *SessionManager) { m.dryRun = dryRun }
}

// New creates a SessionManager.
func New(opts ...Option) *SessionManager {
	m := &SessionManager{
		logger:     slog.Default(),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}
	for _, o := range opts {
		o(m)
	}
	if m.run == nil {
		m.run = runCommand
	}
	return m
}

// VerifyInstallation checks whether the plugin binary is on PATH and reports
// a sane version. It returns the binary path and the raw --version output
// when the binary exists, even if the version check fails.
func (m *SessionManager) VerifyInstallation(ctx context.Context) (installed bool, path string, version string, err error) {
	path, err = exec.LookPath(binaryName)
	if err != nil {
		return false, "", "", nil
	}

	out, err := exec.CommandContext(ctx, path, "--version").Output()
	if err != nil {
		return false, path, "", fmt.Errorf("running %s --version: %w", binaryName, err)
	}
	version = strings.TrimSpace(string(out))
	if !versionPattern.MatchString(version) {
		return false, path, version, nil
	}
	return true, path, version, nil
}

func runCommand(ctx context.Context, dir string, argv []string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("running %s: %w", strings.Join(argv, " "), err)
	}
	return nil
}
