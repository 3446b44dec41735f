package sessionmanager

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

const downloadBase = "https://s3.amazonaws.com/session-manager-downloads/plugin/latest"

// InstallTarget identifies the platform to install the plugin for. Zero
// values are filled in from the current system.
type InstallTarget struct {
	OS           string // runtime.GOOS value
	Arch         string // runtime.GOARCH value
	Distribution LinuxDistribution
	IsRoot       bool
}

// Install downloads and runs the platform-appropriate installer for the
// Session Manager plugin.
func (m *SessionManager) Install(ctx context.Context, target InstallTarget) error {
	if target.OS == "" {
		target.OS = runtime.GOOS
	}
	if target.Arch == "" {
		target.Arch = runtime.GOARCH
	}
	if target.OS == "linux" && target.Distribution.Name == "" {
		target.Distribution = DetectLinuxDistribution()
	}
	if !target.IsRoot {
		target.IsRoot = isRoot()
	}

	switch target.OS {
	case "windows":
		return m.installWindows(ctx)
	case "darwin":
		return m.installMacOS(ctx, target)
	case "linux":
		return m.installLinux(ctx, target)
	default:
		return fmt.Errorf("%w: operating system %s", ErrUnsupportedPlatform, target.OS)
	}
}

// https://docs.aws.amazon.com/systems-manager/latest/userguide/install-plugin-windows.html
func (m *SessionManager) installWindows(ctx context.Context) error {
	dir, cleanup, err := m.tempDir()
	if err != nil {
		return err
	}
	defer cleanup()

	installer := filepath.Join(dir, "SessionManagerPluginSetup.exe")
	if err := m.download(ctx, downloadBase+"/windows/SessionManagerPluginSetup.exe", installer); err != nil {
		return err
	}
	return m.invoke(ctx, dir, []string{installer, "/quiet"})
}

// https://docs.aws.amazon.com/systems-manager/latest/userguide/install-plugin-macos-overview.html
func (m *SessionManager) installMacOS(ctx context.Context, target InstallTarget) error {
	var url string
	switch target.Arch {
	case "amd64":
		url = downloadBase + "/mac/session-manager-plugin.pkg"
	case "arm64":
		url = downloadBase + "/mac_arm64/session-manager-plugin.pkg"
	default:
		return fmt.Errorf("%w: architecture %s on macOS", ErrUnsupportedPlatform, target.Arch)
	}

	dir, cleanup, err := m.tempDir()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := m.download(ctx, url, filepath.Join(dir, "session-manager-plugin.pkg")); err != nil {
		return err
	}

	install := commandAsRoot([]string{"installer", "-pkg", "./session-manager-plugin.pkg", "-target", "/"}, target.IsRoot)
	if err := m.invoke(ctx, dir, install); err != nil {
		return err
	}

	symlink := commandAsRoot([]string{
		"ln", "-s",
		"/usr/local/sessionmanagerplugin/bin/session-manager-plugin",
		"/usr/local/bin/session-manager-plugin",
	}, target.IsRoot)
	return m.invoke(ctx, dir, symlink)
}

// https://docs.aws.amazon.com/systems-manager/latest/userguide/install-plugin-linux-overview.html
func (m *SessionManager) installLinux(ctx context.Context, target InstallTarget) error {
	switch target.Distribution.Name {
	case "debian", "ubuntu":
		return m.installDebian(ctx, target)
	case "amzn", "rhel":
		return m.installRHEL(ctx, target)
	default:
		return fmt.Errorf("%w: distribution %q", ErrUnsupportedPlatform, target.Distribution.Name)
	}
}

func (m *SessionManager) installDebian(ctx context.Context, target InstallTarget) error {
	urls := map[string]string{
		"amd64": downloadBase + "/ubuntu_64bit/session-manager-plugin.deb",
		"386":   downloadBase + "/ubuntu_32bit/session-manager-plugin.deb",
		"arm64": downloadBase + "/ubuntu_arm64/session-manager-plugin.deb",
	}
	url, ok := urls[target.Arch]
	if !ok {
		return fmt.Errorf("%w: architecture %s on %s", ErrUnsupportedPlatform, target.Arch, target.Distribution.Name)
	}

	dir, cleanup, err := m.tempDir()
	if err != nil {
		return err
	}
	defer cleanup()

	if err := m.download(ctx, url, filepath.Join(dir, "session-manager-plugin.deb")); err != nil {
		return err
	}
	install := commandAsRoot([]string{"dpkg", "--install", "session-manager-plugin.deb"}, target.IsRoot)
	return m.invoke(ctx, dir, install)
}

func (m *SessionManager) installRHEL(ctx context.Context, target InstallTarget) error {
	urls := map[string]string{
		"amd64": downloadBase + "/linux_64bit/session-manager-plugin.rpm",
		"386":   downloadBase + "/linux_32bit/session-manager-plugin.rpm",
		"arm64": downloadBase + "/linux_arm64/session-manager-plugin.rpm",
	}
	url, ok := urls[target.Arch]
	if !ok {
		return fmt.Errorf("%w: architecture %s on %s", ErrUnsupportedPlatform, target.Arch, target.Distribution.Name)
	}

	// yum on Amazon Linux 2 and RHEL 7, dnf everywhere newer. yum and dnf
	// install straight from a URL, no local download needed.
	packageManager := "dnf"
	if usesYum(target.Distribution) {
		packageManager = "yum"
	}
	install := commandAsRoot([]string{packageManager, "install", "-y", url}, target.IsRoot)
	return m.invoke(ctx, "", install)
}

func usesYum(d LinuxDistribution) bool {
	if d.Name == "amzn" && strings.HasPrefix(d.Version, "2") {
		return true
	}
	return d.Name == "rhel" && strings.Contains(d.Version, "Maipo")
}

// invoke runs an install command through the confirmation hook, the dry-run
// gate and the configured runner, in that order.
func (m *SessionManager) invoke(ctx context.Context, dir string, argv []string) error {
	if m.confirm != nil {
		if err := m.confirm(argv); err != nil {
			return fmt.Errorf("%w: %v", ErrInstallAborted, err)
		}
	}
	if m.dryRun {
		m.logger.Info("dry run, skipping command", "command", strings.Join(argv, " "))
		return nil
	}
	m.logger.Info("running install command", "command", strings.Join(argv, " "))
	return m.run(ctx, dir, argv)
}

func (m *SessionManager) tempDir() (string, func(), error) {
	dir, err := os.MkdirTemp("", "session-manager-plugin-*")
	if err != nil {
		return "", nil, fmt.Errorf("creating temp dir: %w", err)
	}
	return dir, func() { _ = os.RemoveAll(dir) }, nil
}

func (m *SessionManager) download(ctx context.Context, url, dest string) error {
	m.logger.Info("downloading installer", "url", url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: unexpected status %d", url, resp.StatusCode)
	}

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}
	defer func() { _ = f.Close() }()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return fmt.Errorf("writing %s: %w", dest, err)
	}
	return nil
}
