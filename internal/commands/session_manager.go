package commands

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/awsops/internal/sessionmanager"
)

// NewSessionManagerCmd creates the session-manager command group.
func NewSessionManagerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session-manager",
		Short: "Manage the AWS Session Manager plugin",
	}
	cmd.AddCommand(
		newSessionManagerVerifyCmd(),
		newSessionManagerInstallCmd(),
		newSessionManagerStopCmd(),
	)
	return cmd
}

func newSessionManagerVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Verify the Session Manager plugin installation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager := sessionmanager.New(sessionmanager.WithLogger(newLogger()))
			installed, path, version, err := manager.VerifyInstallation(cmd.Context())
			if err != nil {
				return err
			}
			if !installed {
				if path != "" {
					color.Red("Found %s but its version output looks wrong: %q", path, version)
				} else {
					color.Red("Session Manager plugin is not installed.")
				}
				return fmt.Errorf("session manager plugin not installed")
			}
			color.Green("Session Manager plugin %s is installed at %s.", version, path)
			return nil
		},
	}
}

func newSessionManagerInstallCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Install the Session Manager plugin for the current platform",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			confirm := confirmInstall
			if yes {
				confirm = nil
			}
			manager := sessionmanager.New(
				sessionmanager.WithLogger(newLogger()),
				sessionmanager.WithConfirm(confirm),
				sessionmanager.WithDryRun(dryRun),
			)
			if err := manager.Install(cmd.Context(), sessionmanager.InstallTarget{}); err != nil {
				return err
			}
			if !dryRun {
				color.Green("Session Manager plugin installed.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt.")
	return cmd
}

// confirmInstall asks before running an installer command.
func confirmInstall(command []string) error {
	answer, err := prompt(fmt.Sprintf("Will run the following command: %s. Proceed? [y/N]", strings.Join(command, " ")))
	if err != nil {
		return err
	}
	switch strings.ToLower(answer) {
	case "y", "yes":
		return nil
	default:
		return fmt.Errorf("declined by user")
	}
}

func newSessionManagerStopCmd() *cobra.Command {
	var (
		pidFile string
		remove  bool
	)

	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop the running session recorded in a PID file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			manager := sessionmanager.New(sessionmanager.WithLogger(newLogger()))
			if err := manager.Stop(pidFile, remove); err != nil {
				return err
			}
			color.Green("Terminated the session successfully.")
			return nil
		},
	}

	cmd.Flags().StringVar(&pidFile, "pid-file", "./session-manager-plugin.pid",
		"The path to the PID file holding the session manager plugin process ID.")
	cmd.Flags().BoolVar(&remove, "remove", true, "Remove the PID file after stopping the session.")
	return cmd
}
