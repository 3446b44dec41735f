package taskdef

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPruneClient struct {
	mu sync.Mutex

	families          []string
	revisionsByFamily map[string][]string

	deregistered  []string
	deregisterErr error
	deleted       [][]string
	deleteFailure *ecstypes.Failure
}

func (m *mockPruneClient) ListTaskDefinitionFamilies(ctx context.Context, params *ecs.ListTaskDefinitionFamiliesInput, optFns ...func(*ecs.Options)) (*ecs.ListTaskDefinitionFamiliesOutput, error) {
	families := m.families
	if prefix := aws.ToString(params.FamilyPrefix); prefix != "" {
		families = nil
		for _, f := range m.families {
			if f == prefix {
				families = append(families, f)
			}
		}
	}
	return &ecs.ListTaskDefinitionFamiliesOutput{Families: families}, nil
}

func (m *mockPruneClient) ListTaskDefinitions(ctx context.Context, params *ecs.ListTaskDefinitionsInput, optFns ...func(*ecs.Options)) (*ecs.ListTaskDefinitionsOutput, error) {
	return &ecs.ListTaskDefinitionsOutput{
		TaskDefinitionArns: m.revisionsByFamily[aws.ToString(params.FamilyPrefix)],
	}, nil
}

func (m *mockPruneClient) DeregisterTaskDefinition(ctx context.Context, params *ecs.DeregisterTaskDefinitionInput, optFns ...func(*ecs.Options)) (*ecs.DeregisterTaskDefinitionOutput, error) {
	if m.deregisterErr != nil {
		return nil, m.deregisterErr
	}
	m.mu.Lock()
	m.deregistered = append(m.deregistered, aws.ToString(params.TaskDefinition))
	m.mu.Unlock()
	return &ecs.DeregisterTaskDefinitionOutput{}, nil
}

func (m *mockPruneClient) DeleteTaskDefinitions(ctx context.Context, params *ecs.DeleteTaskDefinitionsInput, optFns ...func(*ecs.Options)) (*ecs.DeleteTaskDefinitionsOutput, error) {
	m.mu.Lock()
	m.deleted = append(m.deleted, params.TaskDefinitions)
	m.mu.Unlock()
	if m.deleteFailure != nil {
		return &ecs.DeleteTaskDefinitionsOutput{Failures: []ecstypes.Failure{*m.deleteFailure}}, nil
	}
	tds := make([]ecstypes.TaskDefinition, len(params.TaskDefinitions))
	for i, arn := range params.TaskDefinitions {
		tds[i] = ecstypes.TaskDefinition{TaskDefinitionArn: aws.String(arn)}
	}
	return &ecs.DeleteTaskDefinitionsOutput{TaskDefinitions: tds}, nil
}

func revisionARNs(family string, n int) []string {
	// Newest first, matching the descending sort the pruner requests.
	arns := make([]string, n)
	for i := range n {
		arns[i] = fmt.Sprintf("arn:aws:ecs:us-east-1:123456789012:task-definition/%s:%d", family, n-i)
	}
	return arns
}

func TestPruner_KeepsLatestRevisions(t *testing.T) {
	client := &mockPruneClient{
		families: []string{"web"},
		revisionsByFamily: map[string][]string{
			"web": revisionARNs("web", 5),
		},
	}
	p := NewPruner(client, Options{KeepLatest: 3})

	report, err := p.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"web"}, report.Families)
	assert.Equal(t, 3, report.Kept)

	sort.Strings(report.Deregistered)
	assert.Equal(t, []string{
		"arn:aws:ecs:us-east-1:123456789012:task-definition/web:1",
		"arn:aws:ecs:us-east-1:123456789012:task-definition/web:2",
	}, report.Deregistered)
	assert.Empty(t, report.Deleted)
}

func TestPruner_FamilyWithinRetention(t *testing.T) {
	client := &mockPruneClient{
		families: []string{"web"},
		revisionsByFamily: map[string][]string{
			"web": revisionARNs("web", 2),
		},
	}
	p := NewPruner(client, Options{KeepLatest: 3})

	report, err := p.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, report.Kept)
	assert.Empty(t, report.Deregistered)
	assert.Empty(t, client.deregistered)
}

func TestPruner_FamilyPrefixFilters(t *testing.T) {
	client := &mockPruneClient{
		families: []string{"web", "worker"},
		revisionsByFamily: map[string][]string{
			"web":    revisionARNs("web", 4),
			"worker": revisionARNs("worker", 4),
		},
	}
	p := NewPruner(client, Options{KeepLatest: 1})

	report, err := p.Run(context.Background(), "web")
	require.NoError(t, err)
	assert.Equal(t, []string{"web"}, report.Families)
	assert.Len(t, report.Deregistered, 3)
}

func TestPruner_DryRun(t *testing.T) {
	client := &mockPruneClient{
		families: []string{"web"},
		revisionsByFamily: map[string][]string{
			"web": revisionARNs("web", 5),
		},
	}
	p := NewPruner(client, Options{KeepLatest: 2, Delete: true, DryRun: true})

	report, err := p.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, report.Deregistered, 3)
	assert.Empty(t, client.deregistered)
	assert.Empty(t, client.deleted)
	assert.Empty(t, report.Deleted)
}

func TestPruner_DeleteBatches(t *testing.T) {
	client := &mockPruneClient{
		families: []string{"web"},
		revisionsByFamily: map[string][]string{
			"web": revisionARNs("web", 26),
		},
	}
	p := NewPruner(client, Options{KeepLatest: 1, Delete: true})

	report, err := p.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, report.Deregistered, 25)
	assert.Len(t, report.Deleted, 25)

	require.Len(t, client.deleted, 3)
	assert.Len(t, client.deleted[0], 10)
	assert.Len(t, client.deleted[1], 10)
	assert.Len(t, client.deleted[2], 5)
}

func TestPruner_DeregisterErrorFatal(t *testing.T) {
	client := &mockPruneClient{
		families: []string{"web"},
		revisionsByFamily: map[string][]string{
			"web": revisionARNs("web", 5),
		},
		deregisterErr: assert.AnError,
	}
	p := NewPruner(client, Options{KeepLatest: 1})

	_, err := p.Run(context.Background(), "")
	assert.ErrorIs(t, err, assert.AnError)
}

func TestPruner_DeleteFailureFatal(t *testing.T) {
	client := &mockPruneClient{
		families: []string{"web"},
		revisionsByFamily: map[string][]string{
			"web": revisionARNs("web", 3),
		},
		deleteFailure: &ecstypes.Failure{
			Arn:    aws.String("arn:aws:ecs:us-east-1:123456789012:task-definition/web:1"),
			Reason: aws.String("TaskDefinition is in use"),
		},
	}
	p := NewPruner(client, Options{KeepLatest: 1, Delete: true})

	_, err := p.Run(context.Background(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TaskDefinition is in use")
}
