package ecs

import (
	"context"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ecs"
)

// StabilityWaiter is the subset of the SDK services-stable waiter used by the
// deployment waiter. The concrete implementation is ecs.ServicesStableWaiter.
type StabilityWaiter interface {
	Wait(ctx context.Context, params *ecs.DescribeServicesInput, maxWaitDur time.Duration, optFns ...func(*ecs.ServicesStableWaiterOptions)) error
}

// isNotYetStable reports whether a services-stable waiter error only means the
// wait budget for a single attempt ran out, as opposed to a real failure. The
// SDK signals this through the error message, so the fragile string match is
// confined to this one function.
func isNotYetStable(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "exceeded max wait time")
}
