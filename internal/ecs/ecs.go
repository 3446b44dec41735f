// Package ecs implements waiting on ECS service deployments: locating the
// running deployment, polling its status until a terminal state, optionally
// waiting for service stability and verifying the resulting task definition.
package ecs

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/ecs"
)

// ECSAPI is the subset of the AWS ECS client used by this package.
type ECSAPI interface {
	ListServiceDeployments(ctx context.Context, params *ecs.ListServiceDeploymentsInput, optFns ...func(*ecs.Options)) (*ecs.ListServiceDeploymentsOutput, error)
	DescribeServiceDeployments(ctx context.Context, params *ecs.DescribeServiceDeploymentsInput, optFns ...func(*ecs.Options)) (*ecs.DescribeServiceDeploymentsOutput, error)
	DescribeServices(ctx context.Context, params *ecs.DescribeServicesInput, optFns ...func(*ecs.Options)) (*ecs.DescribeServicesOutput, error)
}

// ServiceRef identifies a single ECS service within a cluster.
type ServiceRef struct {
	Cluster string
	Service string
}
