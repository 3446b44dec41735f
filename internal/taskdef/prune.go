// Package taskdef implements retention-based pruning of ECS task definition
// revisions: keep the most recent revisions of each family, deregister the
// rest, and optionally delete what was deregistered.
package taskdef

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	ecstypes "github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"golang.org/x/sync/errgroup"
)

const (
	defaultKeepLatest  = 10
	defaultConcurrency = 4

	// DeleteTaskDefinitions accepts at most 10 ARNs per call.
	deleteBatchSize = 10
)

// ECSAPI is the subset of the AWS ECS client used by the pruner.
type ECSAPI interface {
	ListTaskDefinitionFamilies(ctx context.Context, params *ecs.ListTaskDefinitionFamiliesInput, optFns ...func(*ecs.Options)) (*ecs.ListTaskDefinitionFamiliesOutput, error)
	ListTaskDefinitions(ctx context.Context, params *ecs.ListTaskDefinitionsInput, optFns ...func(*ecs.Options)) (*ecs.ListTaskDefinitionsOutput, error)
	DeregisterTaskDefinition(ctx context.Context, params *ecs.DeregisterTaskDefinitionInput, optFns ...func(*ecs.Options)) (*ecs.DeregisterTaskDefinitionOutput, error)
	DeleteTaskDefinitions(ctx context.Context, params *ecs.DeleteTaskDefinitionsInput, optFns ...func(*ecs.Options)) (*ecs.DeleteTaskDefinitionsOutput, error)
}

// Options configures a Pruner.
type Options struct {
	// KeepLatest is how many ACTIVE revisions to keep per family. Defaults to 10.
	KeepLatest int

	// Delete additionally deletes the revisions after deregistering them.
	Delete bool

	// DryRun reports what would be pruned without mutating anything.
	DryRun bool

	// Concurrency bounds parallel deregister calls. Defaults to 4.
	Concurrency int

	Logger *slog.Logger
}

// Pruner prunes old task definition revisions.
type Pruner struct {
	client ECSAPI
	opts   Options
}

// NewPruner creates a Pruner.
func NewPruner(client ECSAPI, opts Options) *Pruner {
	if opts.KeepLatest <= 0 {
		opts.KeepLatest = defaultKeepLatest
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = defaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Pruner{client: client, opts: opts}
}

// Report summarizes one prune run.
type Report struct {
	Families     []string
	Kept         int
	Deregistered []string
	Deleted      []string
}

// Run prunes every ACTIVE family matching familyPrefix (all families when
// empty). Revisions are listed newest-first; the first KeepLatest of each
// family survive and the rest are deregistered concurrently.
func (p *Pruner) Run(ctx context.Context, familyPrefix string) (*Report, error) {
	families, err := p.listFamilies(ctx, familyPrefix)
	if err != nil {
		return nil, err
	}

	report := &Report{Families: families}
	for _, family := range families {
		if err := p.pruneFamily(ctx, family, report); err != nil {
			return nil, err
		}
	}

	if p.opts.Delete && !p.opts.DryRun {
		deleted, err := p.deleteRevisions(ctx, report.Deregistered)
		if err != nil {
			return nil, err
		}
		report.Deleted = deleted
	}

	return report, nil
}

func (p *Pruner) listFamilies(ctx context.Context, familyPrefix string) ([]string, error) {
	input := &ecs.ListTaskDefinitionFamiliesInput{
		Status: ecstypes.TaskDefinitionFamilyStatusActive,
	}
	if familyPrefix != "" {
		input.FamilyPrefix = aws.String(familyPrefix)
	}

	var families []string
	paginator := ecs.NewListTaskDefinitionFamiliesPaginator(p.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing task definition families: %w", err)
		}
		families = append(families, page.Families...)
	}
	return families, nil
}

func (p *Pruner) pruneFamily(ctx context.Context, family string, report *Report) error {
	input := &ecs.ListTaskDefinitionsInput{
		FamilyPrefix: aws.String(family),
		Status:       ecstypes.TaskDefinitionStatusActive,
		Sort:         ecstypes.SortOrderDesc,
	}

	var revisions []string
	paginator := ecs.NewListTaskDefinitionsPaginator(p.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return fmt.Errorf("listing task definitions for %s: %w", family, err)
		}
		revisions = append(revisions, page.TaskDefinitionArns...)
	}

	if len(revisions) <= p.opts.KeepLatest {
		report.Kept += len(revisions)
		return nil
	}

	keep := revisions[:p.opts.KeepLatest]
	prune := revisions[p.opts.KeepLatest:]
	report.Kept += len(keep)

	if p.opts.DryRun {
		p.opts.Logger.Info("dry run, skipping deregistration", "family", family, "revisions", len(prune))
		report.Deregistered = append(report.Deregistered, prune...)
		return nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for _, arn := range prune {
		g.Go(func() error {
			if _, err := p.client.DeregisterTaskDefinition(gctx, &ecs.DeregisterTaskDefinitionInput{
				TaskDefinition: aws.String(arn),
			}); err != nil {
				return fmt.Errorf("deregistering %s: %w", arn, err)
			}
			p.opts.Logger.Info("deregistered task definition", "arn", arn)
			mu.Lock()
			report.Deregistered = append(report.Deregistered, arn)
			mu.Unlock()
			return nil
		})
	}
	return g.Wait()
}

func (p *Pruner) deleteRevisions(ctx context.Context, arns []string) ([]string, error) {
	var deleted []string
	for start := 0; start < len(arns); start += deleteBatchSize {
		end := min(start+deleteBatchSize, len(arns))
		batch := arns[start:end]

		out, err := p.client.DeleteTaskDefinitions(ctx, &ecs.DeleteTaskDefinitionsInput{
			TaskDefinitions: batch,
		})
		if err != nil {
			return deleted, fmt.Errorf("deleting task definitions: %w", err)
		}
		if len(out.Failures) > 0 {
			first := out.Failures[0]
			return deleted, fmt.Errorf("deleting %s: %s", aws.ToString(first.Arn), aws.ToString(first.Reason))
		}
		for _, td := range out.TaskDefinitions {
			deleted = append(deleted, aws.ToString(td.TaskDefinitionArn))
		}
	}
	return deleted, nil
}
