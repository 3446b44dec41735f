package sessionmanager

import (
	"bufio"
	"os"
	"strings"
)

const osReleasePath = "/etc/os-release"

// LinuxDistribution identifies a Linux distribution by its os-release ID and
// version.
type LinuxDistribution struct {
	Name    string
	Version string
}

// DetectLinuxDistribution reads /etc/os-release to identify the current
// distribution. Missing or unreadable files yield an empty distribution.
func DetectLinuxDistribution() LinuxDistribution {
	f, err := os.Open(osReleasePath)
	if err != nil {
		return LinuxDistribution{}
	}
	defer f.Close()

	fields := parseOSRelease(f)
	return LinuxDistribution{
		Name:    strings.ToLower(fields["ID"]),
		Version: fields["VERSION"],
	}
}

func parseOSRelease(r interface{ Read([]byte) (int, error) }) map[string]string {
	fields := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		fields[key] = strings.Trim(value, `"`)
	}
	return fields
}

func isRoot() bool {
	return os.Geteuid() == 0
}

// commandAsRoot prefixes the command with sudo when not running as root.
func commandAsRoot(argv []string, root bool) []string {
	if root {
		return argv
	}
	return append([]string{"sudo"}, argv...)
}
