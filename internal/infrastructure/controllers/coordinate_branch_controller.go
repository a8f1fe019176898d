package controllers

import (
	"context"
	"errors"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/devflow/internal/domain/commands"
	"github.com/rios0rios0/devflow/internal/domain/entities"
)

// CoordinateBranchController handles the "coordinate-branch" subcommand.
type CoordinateBranchController struct {
	command   commands.Coordinate
	workspace commands.PrepareWorkspace
}

// NewCoordinateBranchController creates a new CoordinateBranchController.
func NewCoordinateBranchController(
	command commands.Coordinate,
	workspace commands.PrepareWorkspace,
) *CoordinateBranchController {
	return &CoordinateBranchController{command: command, workspace: workspace}
}

// GetBind returns the Cobra command metadata for the coordinate-branch controller.
func (it *CoordinateBranchController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "coordinate-branch",
		Short: "Create the same branch in every configured repository",
		Long: `Create one branch in the repositories declared in the config file, in
dependency order.

The name is given with --name, or derived from an issue (--issue) with the
same rules as the "issue" command. A failure in a critical repository stops
the run and deletes the branches created so far.`,
	}
}

// Execute runs the coordinated branch creation.
func (it *CoordinateBranchController) Execute(cmd *cobra.Command, _ []string) {
	ctx := context.Background()

	name, _ := cmd.Flags().GetString("name")
	issueRepo, _ := cmd.Flags().GetString("issue-repo")
	number, _ := cmd.Flags().GetInt("issue")
	base, _ := cmd.Flags().GetString("base")
	repos, _ := cmd.Flags().GetStringSlice("repos")

	workspace, err := openWorkspace(ctx, cmd, it.workspace, true)
	if err != nil {
		logger.Errorf("Coordinated branch creation failed: %v", err)
		return
	}
	policies, err := workspace.Settings.Policies()
	if err != nil {
		logger.Errorf("Coordinated branch creation failed: %v", err)
		return
	}

	spec := commands.CoordinatedBranchSpec{Name: name, BaseRef: base, Policies: policies}
	if number > 0 {
		issue, issueErr := it.readIssue(ctx, workspace, issueRepo, number)
		if issueErr != nil {
			logger.Errorf("Coordinated branch creation failed: %v", issueErr)
			return
		}
		spec.Issue = issue
	}

	report, err := it.command.CreateBranches(ctx, workspace.Gateway, spec, coordinationOptions(cmd, workspace, repos))
	logReport(report)
	if err != nil {
		logCoordinationError("Coordinated branch creation failed", err)
	}
}

// AddFlags adds the coordinate-branch flags to the given Cobra command.
func (it *CoordinateBranchController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", "", "Branch name")
	cmd.Flags().Int("issue", 0, "Derive the branch from this issue number")
	cmd.Flags().String("issue-repo", ".", "Repository of the issue (owner/name or local path)")
	cmd.Flags().String("base", "", "Base ref (default: the policy base, then the default branch)")
	addCoordinationFlags(cmd)
}

func (it *CoordinateBranchController) readIssue(
	ctx context.Context,
	workspace *commands.Workspace,
	issueRepo string,
	number int,
) (*entities.Issue, error) {
	if workspace.Issues == nil {
		return nil, entities.NewValidationError("provider %q cannot read issues", workspace.Gateway.Name())
	}
	repo, err := it.workspace.ResolveRepository(issueRepo)
	if err != nil {
		return nil, err
	}
	return workspace.Issues.GetIssue(ctx, repo, number)
}

// addCoordinationFlags adds the flags shared by every coordinated operation.
func addCoordinationFlags(cmd *cobra.Command) {
	cmd.Flags().StringSlice("repos", nil, "Only these repositories (default: every configured one)")
	cmd.Flags().Bool("no-precheck", false, "Skip the conflict prevention pre-check")
	cmd.Flags().Bool("continue-on-error", false, "Record critical failures instead of aborting")
}

// coordinationOptions merges the shared flags with the coordination settings.
func coordinationOptions(
	cmd *cobra.Command,
	workspace *commands.Workspace,
	repos []string,
) commands.CoordinationOptions {
	noPrecheck, _ := cmd.Flags().GetBool("no-precheck")
	continueOnError, _ := cmd.Flags().GetBool("continue-on-error")

	settings := workspace.Settings.Coordination
	return commands.CoordinationOptions{
		Repositories:       repos,
		ConflictPrevention: settings.ConflictPreventionEnabled() && !noPrecheck,
		ContinueOnError:    settings.ContinueOnError || continueOnError,
	}
}

func logCoordinationError(prefix string, err error) {
	var preflight *entities.PreflightConflictError
	var coordination *entities.CoordinationError
	switch {
	case errors.As(err, &preflight):
		logger.Errorf("%s before any change: %v", prefix, preflight)
	case errors.As(err, &coordination):
		logger.Errorf("%s and was rolled back: %v", prefix, coordination)
	default:
		logger.Errorf("%s: %v", prefix, err)
	}
}
