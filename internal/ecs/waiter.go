package ecs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
)

const defaultPollingInterval = 5 * time.Second

// DeploymentWaiter waits for a single service's deployment to finish. It is
// not safe for concurrent use; run one waiter per service.
type DeploymentWaiter struct {
	ref       ServiceRef
	client    ECSAPI
	stability StabilityWaiter
	logger    *slog.Logger
}

// WaiterOption configures a DeploymentWaiter.
type WaiterOption func(*DeploymentWaiter)

// WithLogger sets the waiter's logger.
func WithLogger(l *slog.Logger) WaiterOption {
	return func(w *DeploymentWaiter) { w.logger = l }
}

// WithStabilityWaiter sets a custom services-stable waiter (useful for testing).
func WithStabilityWaiter(sw StabilityWaiter) WaiterOption {
	return func(w *DeploymentWaiter) { w.stability = sw }
}

// NewDeploymentWaiter creates a waiter for the given service.
func NewDeploymentWaiter(client ECSAPI, ref ServiceRef, opts ...WaiterOption) *DeploymentWaiter {
	w := &DeploymentWaiter{
		ref:    ref,
		client: client,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(w)
	}
	if w.stability == nil {
		w.stability = ecs.NewServicesStableWaiter(client)
	}
	return w
}

// WaitOptions configures a single Wait run.
type WaitOptions struct {
	// WaitForStart keeps polling for a deployment to appear instead of
	// failing when none is running yet.
	WaitForStart bool

	// PollingInterval is the sleep between polling attempts across all
	// phases. Defaults to 5s.
	PollingInterval time.Duration

	// WaitForStability additionally waits for the service to be stable
	// after the deployment finishes.
	WaitForStability bool

	// ExpectedTaskDefinition, when set, is compared against the service's
	// task definition after the deployment finishes.
	ExpectedTaskDefinition string
}

// Wait runs the full deployment wait: locate the running deployment, poll it
// to a terminal status, then optionally wait for service stability and verify
// the task definition. Each phase polls unbounded; the caller bounds the whole
// run through the context deadline.
func (w *DeploymentWaiter) Wait(ctx context.Context, opts WaitOptions) error {
	if opts.PollingInterval <= 0 {
		opts.PollingInterval = defaultPollingInterval
	}
	policy := WaitPolicy{PollingInterval: opts.PollingInterval}

	w.logger.Info("looking up running deployment", "cluster", w.ref.Cluster, "service", w.ref.Service)
	deploymentARN, err := w.LocateDeployment(ctx, opts.WaitForStart, policy)
	if err != nil {
		return err
	}

	w.logger.Info("waiting for deployment to finish", "deployment", deploymentARN)
	ok, status, err := w.WaitForCompletion(ctx, deploymentARN, policy)
	if err != nil {
		return err
	}
	if !ok {
		return &DeploymentFailedError{Status: status}
	}
	w.logger.Info("deployment succeeded", "status", status)

	if opts.WaitForStability {
		w.logger.Info("waiting for service to be stable", "service", w.ref.Service)
		if _, err := w.WaitForStability(ctx, policy); err != nil {
			return err
		}
		w.logger.Info("service is stable", "service", w.ref.Service)
	}

	if opts.ExpectedTaskDefinition != "" {
		match, actual, err := w.VerifyTaskDefinition(ctx, opts.ExpectedTaskDefinition)
		if err != nil {
			return err
		}
		if !match {
			return &TaskDefinitionMismatchError{Expected: opts.ExpectedTaskDefinition, Actual: actual}
		}
		w.logger.Info("service task definition matches", "taskDefinition", actual)
	}

	return nil
}

// LocateDeployment returns the ARN of the service's running deployment,
// polling for one to appear when waitForStart is set. It returns
// ErrNoRunningDeployment when none is found, either on the first check
// (waitForStart false) or after the attempt budget runs out.
//
// When several deployments are active at once the backend's list order decides
// which one wins; no tie-break is applied.
func (w *DeploymentWaiter) LocateDeployment(ctx context.Context, waitForStart bool, policy WaitPolicy) (string, error) {
	const (
		found    = "FOUND"
		notFound = "NOT_FOUND"
	)

	var deploymentARN string
	attempt := 0
	query := func(ctx context.Context) (string, error) {
		out, err := w.client.ListServiceDeployments(ctx, &ecs.ListServiceDeploymentsInput{
			Cluster: aws.String(w.ref.Cluster),
			Service: aws.String(w.ref.Service),
			Status: []ecstypes.ServiceDeploymentStatus{
				ecstypes.ServiceDeploymentStatusPending,
				ecstypes.ServiceDeploymentStatusInProgress,
			},
		})
		if err != nil {
			return "", fmt.Errorf("listing service deployments: %w", err)
		}
		attempt++
		if len(out.ServiceDeployments) > 0 {
			deploymentARN = aws.ToString(out.ServiceDeployments[0].ServiceDeploymentArn)
			return found, nil
		}
		w.logger.Info("no running deployments yet", "service", w.ref.Service, "attempt", attempt)
		return notFound, nil
	}
	classify := func(s string) PollState {
		if s == found {
			return PollSuccess
		}
		return PollContinue
	}

	if !waitForStart {
		status, err := query(ctx)
		if err != nil {
			return "", err
		}
		if status != found {
			return "", ErrNoRunningDeployment
		}
		return deploymentARN, nil
	}

	ok, _, err := PollUntilTerminal(ctx, query, classify, policy)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrNoRunningDeployment
	}
	return deploymentARN, nil
}

// WaitForCompletion polls the deployment until it reaches a terminal status.
// It returns (true, status) on success and (false, status) when the deployment
// reached a failure status or the attempt budget ran out before a terminal
// status was observed.
func (w *DeploymentWaiter) WaitForCompletion(ctx context.Context, deploymentARN string, policy WaitPolicy) (bool, string, error) {
	attempt := 0
	query := func(ctx context.Context) (string, error) {
		out, err := w.client.DescribeServiceDeployments(ctx, &ecs.DescribeServiceDeploymentsInput{
			ServiceDeploymentArns: []string{deploymentARN},
		})
		if err != nil {
			return "", fmt.Errorf("describing service deployment: %w", err)
		}
		if len(out.ServiceDeployments) == 0 {
			return "", fmt.Errorf("deployment not found: %s", deploymentARN)
		}
		status := string(out.ServiceDeployments[0].Status)
		attempt++
		if ClassifyDeploymentStatus(status) == PollContinue {
			w.logger.Info("deployment in progress", "status", status, "attempt", attempt)
		}
		return status, nil
	}
	return PollUntilTerminal(ctx, query, ClassifyDeploymentStatus, policy)
}

// WaitForStability delegates to the SDK services-stable waiter, one attempt
// per poll so this phase's interval and attempt accounting stays aligned with
// the other phases. A "not yet stable" signal keeps polling; any other waiter
// error is fatal.
func (w *DeploymentWaiter) WaitForStability(ctx context.Context, policy WaitPolicy) (bool, error) {
	const (
		stable    = "STABLE"
		notStable = "NOT_STABLE"
	)

	attempt := 0
	singleAttempt := func(o *ecs.ServicesStableWaiterOptions) {
		o.MinDelay = policy.PollingInterval
		o.MaxDelay = policy.PollingInterval
	}
	query := func(ctx context.Context) (string, error) {
		attempt++
		w.logger.Info("checking service stability", "service", w.ref.Service, "attempt", attempt)
		err := w.stability.Wait(ctx, &ecs.DescribeServicesInput{
			Cluster:  aws.String(w.ref.Cluster),
			Services: []string{w.ref.Service},
		}, policy.PollingInterval, singleAttempt)
		switch {
		case err == nil:
			return stable, nil
		case isNotYetStable(err):
			return notStable, nil
		default:
			return "", fmt.Errorf("waiting for service stability: %w", err)
		}
	}
	classify := func(s string) PollState {
		if s == stable {
			return PollSuccess
		}
		return PollContinue
	}

	ok, _, err := PollUntilTerminal(ctx, query, classify, policy)
	if err != nil {
		return false, err
	}
	return ok, nil
}

// VerifyTaskDefinition compares the service's current task definition against
// expected by exact string equality, returning the actual ARN either way.
func (w *DeploymentWaiter) VerifyTaskDefinition(ctx context.Context, expected string) (bool, string, error) {
	out, err := w.client.DescribeServices(ctx, &ecs.DescribeServicesInput{
		Cluster:  aws.String(w.ref.Cluster),
		Services: []string{w.ref.Service},
	})
	if err != nil {
		return false, "", fmt.Errorf("describing service: %w", err)
	}
	if len(out.Services) == 0 {
		return false, "", fmt.Errorf("service not found: %s/%s", w.ref.Cluster, w.ref.Service)
	}
	actual := aws.ToString(out.Services[0].TaskDefinition)
	return actual == expected, actual, nil
}
