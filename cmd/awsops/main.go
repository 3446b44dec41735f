package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dwsmith1983/awsops/internal/commands"
)

var version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "awsops",
		Short: "Convenience commands for day-to-day AWS operations",
		Long: `awsops bundles the small AWS chores that otherwise end up as shell
scripts: waiting for ECS deployments to finish, pruning old task definition
revisions, running commands with secrets and parameters injected as
environment variables, configuring MFA credentials, and installing the
Session Manager plugin.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	commands.RegisterGlobalFlags(root)
	root.AddCommand(
		commands.NewECSCmd(),
		commands.NewLoadVariablesCmd(),
		commands.NewMFACmd(),
		commands.NewSessionManagerCmd(),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
