// Package commands implements the awsops CLI commands.
package commands

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

// Global flags, registered on the root command.
var (
	dryRun  bool
	verbose bool
)

// RegisterGlobalFlags attaches the persistent flags shared by all commands.
func RegisterGlobalFlags(root *cobra.Command) {
	root.PersistentFlags().BoolVar(&dryRun, "dry-run", false,
		"Avoid making changes; commands report what they would do instead.")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable debug logging.")
}

// newLogger creates the logger commands pass down into components.
func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// prompt reads one line from stdin after printing the given label.
func prompt(label string) (string, error) {
	fmt.Printf("%s: ", label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// expandUser expands a leading ~ to the user's home directory.
func expandUser(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}
