package commands

import (
	"context"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsecs "github.com/aws/aws-sdk-go-v2/service/ecs"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/dwsmith1983/awsops/internal/config"
	"github.com/dwsmith1983/awsops/internal/taskdef"
)

func newPruneTaskDefinitionsCmd() *cobra.Command {
	var (
		familyPrefix string
		keepLatest   int
		deleteAfter  bool
		concurrency  int
	)

	cmd := &cobra.Command{
		Use:   "prune-task-definitions",
		Short: "Deregister old ECS task definition revisions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPruneTaskDefinitions(cmd.Context(), familyPrefix, keepLatest, deleteAfter, concurrency)
		},
	}

	cmd.Flags().StringVar(&familyPrefix, "family-prefix", "",
		"Only prune task definition families with this prefix. Empty prunes all families.")
	cmd.Flags().IntVar(&keepLatest, "keep-latest", 10,
		"How many of the most recent ACTIVE revisions to keep per family.")
	cmd.Flags().BoolVar(&deleteAfter, "delete", false,
		"Also delete the revisions after deregistering them.")
	cmd.Flags().IntVar(&concurrency, "concurrency", 4,
		"How many deregister calls to run in parallel.")

	return cmd
}

func runPruneTaskDefinitions(ctx context.Context, familyPrefix string, keepLatest int, deleteAfter bool, concurrency int) error {
	cfg, err := config.Load(".")
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if familyPrefix == "" {
		familyPrefix = cfg.Prune.FamilyPrefix
	}
	if cfg.Prune.KeepLatest > 0 && keepLatest == 10 {
		keepLatest = cfg.Prune.KeepLatest
	}
	deleteAfter = deleteAfter || cfg.Prune.Delete

	if keepLatest < 1 {
		return fmt.Errorf("keep-latest must be at least 1")
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return fmt.Errorf("loading AWS config: %w", err)
	}

	pruner := taskdef.NewPruner(awsecs.NewFromConfig(awsCfg), taskdef.Options{
		KeepLatest:  keepLatest,
		Delete:      deleteAfter,
		DryRun:      dryRun,
		Concurrency: concurrency,
		Logger:      newLogger(),
	})

	report, err := pruner.Run(ctx, familyPrefix)
	if err != nil {
		return fmt.Errorf("pruning task definitions: %w", err)
	}

	if dryRun {
		color.Yellow("Dry run: %d revisions across %d families would be deregistered (%d kept).",
			len(report.Deregistered), len(report.Families), report.Kept)
		return nil
	}

	color.Green("Deregistered %d revisions across %d families (%d kept, %d deleted).",
		len(report.Deregistered), len(report.Families), report.Kept, len(report.Deleted))
	return nil
}
