package commands

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/awsops/internal/config"
	"github.com/dwsmith1983/awsops/internal/variables"
)

// NewLoadVariablesCmd creates the load-variables command, a wrapper that runs
// a command with AWS secrets and parameters injected as environment
// variables. Intended for ECS, which cannot inject a whole JSON object of
// secrets as individual environment variables by itself.
func NewLoadVariablesCmd() *cobra.Command {
	var (
		arns         []string
		overwriteEnv bool
	)

	cmd := &cobra.Command{
		Use:   "load-variables [flags] -- command [args...]",
		Short: "Run a command with AWS secrets and parameters as environment variables",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoadVariables(cmd.Context(), arns, overwriteEnv, args)
		},
	}

	cmd.Flags().StringArrayVar(&arns, "arns", nil,
		"ARNs of the secrets or parameters to load. Variables are loaded in ARN order, later ARNs overwriting earlier ones on name collision.")
	cmd.Flags().BoolVar(&overwriteEnv, "overwrite-env", false,
		"Overwrite existing environment variables with the same name.")

	return cmd
}

func runLoadVariables(ctx context.Context, arns []string, overwriteEnv bool, command []string) error {
	if len(command) == 0 {
		return nil
	}

	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if len(arns) == 0 {
		arns = cfg.Variables.ARNs
	}

	// Order keys are the decimal list indices. The merge sorts them as
	// strings, so precedence follows the ARN order given.
	sources := make(map[string]string, len(arns))
	for i, arn := range arns {
		sources[strconv.Itoa(i)] = arn
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}

	loader := variables.NewLoader(
		secretsmanager.NewFromConfig(awsCfg),
		ssm.NewFromConfig(awsCfg),
		variables.WithLogger(newLogger()),
	)
	vars, err := loader.Load(ctx, sources)
	if err != nil {
		return fmt.Errorf("loading variables: %w", err)
	}

	env := variables.BuildEnv(vars, overwriteEnv)

	if dryRun {
		names := make([]string, 0, len(vars))
		for name := range vars {
			names = append(names, name)
		}
		sort.Strings(names)
		color.Yellow("Dry run: would run %s with %d loaded variables:", command[0], len(names))
		for _, name := range names {
			fmt.Printf("  %s\n", name)
		}
		return nil
	}

	return variables.ExecCommand(command, env)
}
