package commands

import (
	"github.com/spf13/cobra"
)

// NewECSCmd creates the ecs command group.
func NewECSCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ecs",
		Short: "ECS deployment and task definition helpers",
	}
	cmd.AddCommand(
		newWaitForDeploymentCmd(),
		newPruneTaskDefinitionsCmd(),
	)
	return cmd
}
