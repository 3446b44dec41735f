package ecs

import (
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
)

// PollState is the normalized outcome of classifying one polled status.
type PollState string

const (
	PollContinue PollState = "continue"
	PollSuccess  PollState = "success"
	PollFailure  PollState = "failure"
)

// ClassifyDeploymentStatus maps a raw service deployment status onto a poll
// state. The partition is shared by every phase that polls deployment status:
// PENDING and IN_PROGRESS keep polling, SUCCESSFUL is terminal success, and
// every other status (STOPPED, STOP_REQUESTED and the ROLLBACK_* family) is a
// terminal failure.
func ClassifyDeploymentStatus(status string) PollState {
	switch status {
	case string(ecstypes.ServiceDeploymentStatusSuccessful):
		return PollSuccess
	case string(ecstypes.ServiceDeploymentStatusPending),
		string(ecstypes.ServiceDeploymentStatusInProgress):
		return PollContinue
	default:
		return PollFailure
	}
}
