package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/awsops/internal/config"
	"github.com/dwsmith1983/awsops/internal/deadline"
	"github.com/dwsmith1983/awsops/internal/ecs"
)

type waitForDeploymentOptions struct {
	cluster                string
	service                string
	expectedTaskDefinition string
	pollingIntervalSeconds int
	timeoutSeconds         int
	waitForStart           bool
	waitForStability       bool
}

func newWaitForDeploymentCmd() *cobra.Command {
	var opts waitForDeploymentOptions

	cmd := &cobra.Command{
		Use:   "wait-for-deployment",
		Short: "Wait for an ECS service deployment to complete",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWaitForDeployment(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.cluster, "cluster", "", "The name of the ECS cluster.")
	cmd.Flags().StringVar(&opts.service, "service", "", "The name of the ECS service.")
	cmd.Flags().StringVar(&opts.expectedTaskDefinition, "expected-task-definition", "",
		"The service's task definition expected after deployment. When set, the service's task definition is asserted after the deployment finished.")
	cmd.Flags().IntVar(&opts.pollingIntervalSeconds, "polling-interval", 5,
		"The interval between polling attempts, in seconds.")
	cmd.Flags().IntVar(&opts.timeoutSeconds, "timeout-seconds", 0,
		"The maximum time to wait for the deployment to complete, in seconds. 0 waits indefinitely.")
	cmd.Flags().BoolVar(&opts.waitForStart, "wait-for-start", true,
		"Wait for a new deployment to start when no running deployment is found, since right after a deploy there may be none yet.")
	cmd.Flags().BoolVar(&opts.waitForStability, "wait-for-stability", false,
		"Also wait for the service to be stable after the deployment.")

	return cmd
}

func runWaitForDeployment(ctx context.Context, opts waitForDeploymentOptions) error {
	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if opts.cluster == "" {
		opts.cluster = cfg.ECS.Cluster
	}
	if opts.service == "" {
		opts.service = cfg.ECS.Service
	}
	if opts.timeoutSeconds == 0 {
		opts.timeoutSeconds = cfg.ECS.TimeoutSeconds
	}
	if cfg.ECS.PollingIntervalSeconds > 0 && opts.pollingIntervalSeconds == 5 {
		opts.pollingIntervalSeconds = cfg.ECS.PollingIntervalSeconds
	}

	if opts.cluster == "" {
		return fmt.Errorf("cluster is required")
	}
	if opts.service == "" {
		return fmt.Errorf("service is required")
	}
	if opts.pollingIntervalSeconds < 1 {
		return fmt.Errorf("polling-interval must be at least 1")
	}
	if opts.timeoutSeconds < 0 {
		return fmt.Errorf("timeout-seconds must be at least 1")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}
	client := awsecs.NewFromConfig(awsCfg)

	waiter := ecs.NewDeploymentWaiter(client,
		ecs.ServiceRef{Cluster: opts.cluster, Service: opts.service},
		ecs.WithLogger(newLogger()),
	)

	start := time.Now()
	err = deadline.Run(ctx, time.Duration(opts.timeoutSeconds)*time.Second, func(ctx context.Context) error {
		return waiter.Wait(ctx, ecs.WaitOptions{
			WaitForStart:           opts.waitForStart,
			PollingInterval:        time.Duration(opts.pollingIntervalSeconds) * time.Second,
			WaitForStability:       opts.waitForStability,
			ExpectedTaskDefinition: opts.expectedTaskDefinition,
		})
	})
	elapsed := time.Since(start)

	var failed *ecs.DeploymentFailedError
	var mismatch *ecs.TaskDefinitionMismatchError
	switch {
	case err == nil:
		color.Green("Deployment succeeded in %.1f seconds.", elapsed.Seconds())
		return nil
	case errors.Is(err, deadline.ErrTimedOut):
		color.Red("Timeout reached after %d seconds. The deployment may not have finished.", opts.timeoutSeconds)
		return err
	case errors.Is(err, ecs.ErrNoRunningDeployment) && !opts.waitForStart:
		// Nothing in flight and not asked to wait for one: nothing to do.
		color.Yellow("No running deployments found for service %s.", opts.service)
		return nil
	case errors.As(err, &failed):
		color.Red("Deployment failed in %.1f seconds with status %s.", elapsed.Seconds(), failed.Status)
		return err
	case errors.As(err, &mismatch):
		color.Red("The service task definition is not the expected one; got: %s", mismatch.Actual)
		return err
	default:
		return err
	}
}
