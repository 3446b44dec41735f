package ecs

import (
	"errors"
	"fmt"
)

// ErrNoRunningDeployment indicates no active deployment was found for the
// service, either on the first check or after exhausting wait attempts.
// Callers decide whether this means "nothing to do" or a hard failure.
var ErrNoRunningDeployment = errors.New("no running deployment found")

// DeploymentFailedError reports a deployment that reached a terminal
// non-success status.
type DeploymentFailedError struct {
	Status string
}

func (e *DeploymentFailedError) Error() string {
	return fmt.Sprintf("deployment failed with status %s", e.Status)
}

// TaskDefinitionMismatchError reports that the service's task definition after
// deployment is not the expected one. The command layer decides whether the
// mismatch is fatal.
type TaskDefinitionMismatchError struct {
	Expected string
	Actual   string
}

func (e *TaskDefinitionMismatchError) Error() string {
	return fmt.Sprintf("service task definition is %s, expected %s", e.Actual, e.Expected)
}
