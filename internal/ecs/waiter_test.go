package ecs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	sdkecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const deploymentARN = "arn:aws:ecs:us-east-1:123456789012:service-deployment/example-cluster/example-service/ejGvqq2ilnbKT9qj0vLJe"

var testRef = ServiceRef{Cluster: "example-cluster", Service: "example-service"}

// mockECSClient scripts responses per call, repeating the last scripted
// response once the script runs out.
type mockECSClient struct {
	listOutputs   []*sdkecs.ListServiceDeploymentsOutput
	listErr       error
	listCalls     int
	statusOutputs []string
	describeErr   error
	describeCalls int
	servicesOut   *sdkecs.DescribeServicesOutput
	servicesErr   error
}

func (m *mockECSClient) ListServiceDeployments(ctx context.Context, params *sdkecs.ListServiceDeploymentsInput, optFns ...func(*sdkecs.Options)) (*sdkecs.ListServiceDeploymentsOutput, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	i := min(m.listCalls, len(m.listOutputs)-1)
	m.listCalls++
	return m.listOutputs[i], nil
}

func (m *mockECSClient) DescribeServiceDeployments(ctx context.Context, params *sdkecs.DescribeServiceDeploymentsInput, optFns ...func(*sdkecs.Options)) (*sdkecs.DescribeServiceDeploymentsOutput, error) {
	if m.describeErr != nil {
		return nil, m.describeErr
	}
	i := min(m.describeCalls, len(m.statusOutputs)-1)
	m.describeCalls++
	return &sdkecs.DescribeServiceDeploymentsOutput{
		ServiceDeployments: []ecstypes.ServiceDeployment{
			{Status: ecstypes.ServiceDeploymentStatus(m.statusOutputs[i])},
		},
	}, nil
}

func (m *mockECSClient) DescribeServices(ctx context.Context, params *sdkecs.DescribeServicesInput, optFns ...func(*sdkecs.Options)) (*sdkecs.DescribeServicesOutput, error) {
	return m.servicesOut, m.servicesErr
}

func emptyDeployments() *sdkecs.ListServiceDeploymentsOutput {
	return &sdkecs.ListServiceDeploymentsOutput{}
}

func oneDeployment() *sdkecs.ListServiceDeploymentsOutput {
	return &sdkecs.ListServiceDeploymentsOutput{
		ServiceDeployments: []ecstypes.ServiceDeploymentBrief{
			{ServiceDeploymentArn: aws.String(deploymentARN)},
		},
	}
}

// mockStabilityWaiter returns scripted errors per call.
type mockStabilityWaiter struct {
	errs  []error
	calls int
}

func (m *mockStabilityWaiter) Wait(ctx context.Context, params *sdkecs.DescribeServicesInput, maxWaitDur time.Duration, optFns ...func(*sdkecs.ServicesStableWaiterOptions)) error {
	i := min(m.calls, len(m.errs)-1)
	m.calls++
	return m.errs[i]
}

func errNotYetStable() error {
	return errors.New("exceeded max wait time for ServicesStable waiter")
}

func newTestWaiter(client *mockECSClient, opts ...WaiterOption) *DeploymentWaiter {
	return NewDeploymentWaiter(client, testRef, opts...)
}

func TestLocateDeployment_NoDeploymentNoWait(t *testing.T) {
	client := &mockECSClient{listOutputs: []*sdkecs.ListServiceDeploymentsOutput{emptyDeployments()}}
	w := newTestWaiter(client)

	_, err := w.LocateDeployment(context.Background(), false, fastPolicy(3))
	assert.ErrorIs(t, err, ErrNoRunningDeployment)
	assert.Equal(t, 1, client.listCalls)
}

func TestLocateDeployment_WaitForStart(t *testing.T) {
	client := &mockECSClient{listOutputs: []*sdkecs.ListServiceDeploymentsOutput{
		emptyDeployments(), emptyDeployments(), oneDeployment(),
	}}
	w := newTestWaiter(client)

	arn, err := w.LocateDeployment(context.Background(), true, fastPolicy(3))
	require.NoError(t, err)
	assert.Equal(t, deploymentARN, arn)
	assert.Equal(t, 3, client.listCalls)
}

func TestLocateDeployment_MaxAttemptsExceeded(t *testing.T) {
	client := &mockECSClient{listOutputs: []*sdkecs.ListServiceDeploymentsOutput{emptyDeployments()}}
	w := newTestWaiter(client)

	_, err := w.LocateDeployment(context.Background(), true, fastPolicy(3))
	assert.ErrorIs(t, err, ErrNoRunningDeployment)
	assert.Equal(t, 4, client.listCalls)
}

func TestLocateDeployment_ListErrorPropagates(t *testing.T) {
	client := &mockECSClient{listErr: assert.AnError}
	w := newTestWaiter(client)

	_, err := w.LocateDeployment(context.Background(), true, fastPolicy(3))
	assert.ErrorIs(t, err, assert.AnError)
}

func TestWaitForCompletion(t *testing.T) {
	client := &mockECSClient{statusOutputs: []string{"PENDING", "IN_PROGRESS", "SUCCESSFUL"}}
	w := newTestWaiter(client)

	ok, status, err := w.WaitForCompletion(context.Background(), deploymentARN, fastPolicy(0))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "SUCCESSFUL", status)
	assert.Equal(t, 3, client.describeCalls)
}

func TestWaitForCompletion_MaxAttemptsExceeded(t *testing.T) {
	client := &mockECSClient{statusOutputs: []string{"PENDING", "IN_PROGRESS"}}
	w := newTestWaiter(client)

	ok, status, err := w.WaitForCompletion(context.Background(), deploymentARN, fastPolicy(3))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "IN_PROGRESS", status)
	assert.Equal(t, 4, client.describeCalls)
}

func TestWaitForCompletion_Failed(t *testing.T) {
	failureStatuses := []string{
		"STOPPED",
		"STOP_REQUESTED",
		"ROLLBACK_REQUESTED",
		"ROLLBACK_IN_PROGRESS",
		"ROLLBACK_SUCCESSFUL",
		"ROLLBACK_FAILED",
	}
	for _, status := range failureStatuses {
		t.Run(status, func(t *testing.T) {
			client := &mockECSClient{statusOutputs: []string{"IN_PROGRESS", "IN_PROGRESS", status}}
			w := newTestWaiter(client)

			ok, actual, err := w.WaitForCompletion(context.Background(), deploymentARN, fastPolicy(3))
			require.NoError(t, err)
			assert.False(t, ok)
			assert.Equal(t, status, actual)
			assert.Equal(t, 3, client.describeCalls)
		})
	}
}

func TestWaitForStability(t *testing.T) {
	stability := &mockStabilityWaiter{errs: []error{errNotYetStable(), errNotYetStable(), nil}}
	w := newTestWaiter(&mockECSClient{}, WithStabilityWaiter(stability))

	ok, err := w.WaitForStability(context.Background(), fastPolicy(3))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, stability.calls)
}

func TestWaitForStability_MaxAttemptsExceeded(t *testing.T) {
	stability := &mockStabilityWaiter{errs: []error{errNotYetStable()}}
	w := newTestWaiter(&mockECSClient{}, WithStabilityWaiter(stability))

	ok, err := w.WaitForStability(context.Background(), fastPolicy(3))
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 4, stability.calls)
}

func TestWaitForStability_FatalErrorPropagates(t *testing.T) {
	stability := &mockStabilityWaiter{errs: []error{assert.AnError}}
	w := newTestWaiter(&mockECSClient{}, WithStabilityWaiter(stability))

	_, err := w.WaitForStability(context.Background(), fastPolicy(3))
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, stability.calls)
}

func TestVerifyTaskDefinition(t *testing.T) {
	const taskDef = "arn:aws:ecs:us-east-1:123456789012:task-definition/example:42"
	client := &mockECSClient{servicesOut: &sdkecs.DescribeServicesOutput{
		Services: []ecstypes.Service{{TaskDefinition: aws.String(taskDef)}},
	}}
	w := newTestWaiter(client)

	match, actual, err := w.VerifyTaskDefinition(context.Background(), taskDef)
	require.NoError(t, err)
	assert.True(t, match)
	assert.Equal(t, taskDef, actual)

	match, actual, err = w.VerifyTaskDefinition(context.Background(), taskDef+"0")
	require.NoError(t, err)
	assert.False(t, match)
	assert.Equal(t, taskDef, actual)
}

func TestWait_Success(t *testing.T) {
	client := &mockECSClient{
		listOutputs:   []*sdkecs.ListServiceDeploymentsOutput{oneDeployment()},
		statusOutputs: []string{"PENDING", "IN_PROGRESS", "SUCCESSFUL"},
	}
	stability := &mockStabilityWaiter{errs: []error{errNotYetStable(), nil}}
	w := newTestWaiter(client, WithStabilityWaiter(stability))

	err := w.Wait(context.Background(), WaitOptions{
		WaitForStart:     true,
		PollingInterval:  time.Millisecond,
		WaitForStability: true,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stability.calls)
}

func TestWait_DeploymentFailed(t *testing.T) {
	client := &mockECSClient{
		listOutputs:   []*sdkecs.ListServiceDeploymentsOutput{oneDeployment()},
		statusOutputs: []string{"IN_PROGRESS", "ROLLBACK_FAILED"},
	}
	w := newTestWaiter(client)

	err := w.Wait(context.Background(), WaitOptions{WaitForStart: true, PollingInterval: time.Millisecond})
	var failed *DeploymentFailedError
	require.ErrorAs(t, err, &failed)
	assert.Equal(t, "ROLLBACK_FAILED", failed.Status)
}

func TestWait_TaskDefinitionMismatch(t *testing.T) {
	client := &mockECSClient{
		listOutputs:   []*sdkecs.ListServiceDeploymentsOutput{oneDeployment()},
		statusOutputs: []string{"SUCCESSFUL"},
		servicesOut: &sdkecs.DescribeServicesOutput{
			Services: []ecstypes.Service{{TaskDefinition: aws.String("arn:aws:ecs:us-east-1:123456789012:task-definition/example:41")}},
		},
	}
	w := newTestWaiter(client)

	err := w.Wait(context.Background(), WaitOptions{
		WaitForStart:           true,
		PollingInterval:        time.Millisecond,
		ExpectedTaskDefinition: "arn:aws:ecs:us-east-1:123456789012:task-definition/example:42",
	})
	var mismatch *TaskDefinitionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "arn:aws:ecs:us-east-1:123456789012:task-definition/example:41", mismatch.Actual)
}
