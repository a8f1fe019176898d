package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/devflow/internal/domain/commands"
	"github.com/rios0rios0/devflow/internal/domain/entities"
	"github.com/rios0rios0/devflow/internal/domain/repositories"
)

// ConflictsController handles the "conflicts" subcommand.
type ConflictsController struct {
	command   commands.DetectConflicts
	workspace commands.PrepareWorkspace
	local     repositories.LocalRepository
}

// NewConflictsController creates a new ConflictsController.
func NewConflictsController(
	command commands.DetectConflicts,
	workspace commands.PrepareWorkspace,
	local repositories.LocalRepository,
) *ConflictsController {
	return &ConflictsController{command: command, workspace: workspace, local: local}
}

// GetBind returns the Cobra command metadata for the conflicts controller.
func (it *ConflictsController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "conflicts [repository]",
		Short: "Predict merge conflicts between two branches",
		Long: `Compare a source branch with a target branch and flag the changed files
that match the critical path patterns (manifests, lock files, CI definitions).

The prediction is path based: it reports risk, not actual merge hunks.
Without --source the branch checked out in the local clone is used, and
without --target the repository default branch.`,
	}
}

// Execute runs the conflict prediction.
func (it *ConflictsController) Execute(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	source, _ := cmd.Flags().GetString("source")
	target, _ := cmd.Flags().GetString("target")
	patterns, _ := cmd.Flags().GetStringSlice("patterns")

	arg := repositoryArg(args)
	repo, err := it.workspace.ResolveRepository(arg)
	if err != nil {
		logger.Errorf("Conflict prediction failed: %v", err)
		return
	}
	if source == "" {
		if source, err = it.local.CurrentBranch(arg); err != nil {
			logger.Errorf("No --source given and no checked out branch found: %v", err)
			return
		}
	}

	workspace, err := openWorkspace(ctx, cmd, it.workspace, false)
	if err != nil {
		logger.Errorf("Conflict prediction failed: %v", err)
		return
	}
	if target == "" {
		metadata, metaErr := workspace.Gateway.GetRepositoryMetadata(ctx, repo)
		if metaErr != nil {
			logger.Errorf("Conflict prediction failed: %v", metaErr)
			return
		}
		target = metadata.DefaultBranch
	}
	if len(patterns) == 0 {
		patterns = workspace.Settings.CriticalPatterns()
	}

	report, err := it.command.Execute(ctx, workspace.Gateway, repo, source, target, commands.ConflictOptions{
		CriticalPatterns: patterns,
	})
	if err != nil {
		logger.Errorf("Conflict prediction failed: %v", err)
		return
	}
	logConflicts(report)
}

// AddFlags adds the conflicts-specific flags to the given Cobra command.
func (it *ConflictsController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("source", "", "Source branch (default: the checked out branch)")
	cmd.Flags().String("target", "", "Target branch (default: the repository default branch)")
	cmd.Flags().StringSlice("patterns", nil, "Critical path patterns (default: from the config)")
}

func logConflicts(report *entities.ConflictReport) {
	logger.Infof(
		"%s: %s is %d ahead and %d behind %s, %d files changed",
		report.Repository, report.SourceBranch, report.AheadBy, report.BehindBy,
		report.TargetBranch, len(report.Files),
	)
	if !report.HasConflicts {
		logger.Info("No critical paths changed")
		return
	}
	for _, path := range report.CriticalFiles() {
		logger.Warnf("  critical path changed: %s", path)
	}
}
