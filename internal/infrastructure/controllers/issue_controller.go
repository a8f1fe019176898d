package controllers

import (
	"context"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/devflow/internal/domain/commands"
	"github.com/rios0rios0/devflow/internal/domain/entities"
)

// IssueController handles the "issue" subcommand.
type IssueController struct {
	command   commands.RunIssueWorkflow
	workspace commands.PrepareWorkspace
}

// NewIssueController creates a new IssueController.
func NewIssueController(
	command commands.RunIssueWorkflow,
	workspace commands.PrepareWorkspace,
) *IssueController {
	return &IssueController{command: command, workspace: workspace}
}

// GetBind returns the Cobra command metadata for the issue controller.
func (it *IssueController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "issue [repository]",
		Short: "Create the branch (and pull request) of an issue",
		Long: `Read an issue, pick the branch type from its labels and create the branch
from the policy base ref.

The repository is "owner/name", or a path to a local clone ("." by default)
whose origin remote points to the hosting service. Protection rules, the
conflict prediction and the pull request are opt-in.`,
	}
}

// Execute runs the issue workflow.
func (it *IssueController) Execute(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	number, _ := cmd.Flags().GetInt("number")
	base, _ := cmd.Flags().GetString("base")
	protect, _ := cmd.Flags().GetBool("protect")
	conflicts, _ := cmd.Flags().GetBool("conflicts")
	openPR, _ := cmd.Flags().GetBool("pr")
	draft, _ := cmd.Flags().GetBool("draft")
	labels, _ := cmd.Flags().GetStringSlice("labels")
	comment, _ := cmd.Flags().GetBool("comment")

	if number <= 0 {
		logger.Errorf("An issue number is required (--number)")
		return
	}

	repo, err := it.workspace.ResolveRepository(repositoryArg(args))
	if err != nil {
		logger.Errorf("Issue workflow failed: %v", err)
		return
	}

	workspace, err := openWorkspace(ctx, cmd, it.workspace, false)
	if err != nil {
		logger.Errorf("Issue workflow failed: %v", err)
		return
	}
	if workspace.Issues == nil {
		logger.Errorf("Provider %q cannot read issues", workspace.Gateway.Name())
		return
	}

	policies, err := workspace.Settings.Policies()
	if err != nil {
		logger.Errorf("Issue workflow failed: %v", err)
		return
	}

	result, err := it.command.Execute(ctx, workspace.Gateway, workspace.Issues, repo, number, commands.IssueWorkflowOptions{
		Branch: commands.BranchOptions{
			Policies: policies,
			BaseRef:  base,
			Protect:  protect,
		},
		CheckConflicts:    conflicts,
		CriticalPatterns:  workspace.Settings.CriticalPatterns(),
		CreatePullRequest: openPR,
		PullRequest:       commands.PullRequestOptions{Draft: draft, Labels: labels},
		Comment:           comment,
	})
	if err != nil {
		logger.Errorf("Issue workflow failed: %v", err)
		return
	}

	branch := result.Branch.Descriptor
	if result.Branch.Exists {
		logger.Infof("Branch %s already exists in %s", branch.Name, repo)
	} else {
		logger.Infof("Created %s branch %s from %s in %s", branch.Type, branch.Name, branch.BaseRef, repo)
	}
	if result.Conflicts != nil {
		logConflicts(result.Conflicts)
	}
	if result.PullRequest != nil {
		logger.Infof("Pull request #%d: %s", result.PullRequest.Number, result.PullRequest.URL)
	}
}

// AddFlags adds the issue-specific flags to the given Cobra command.
func (it *IssueController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().IntP("number", "n", 0, "Issue number")
	cmd.Flags().String("base", "", "Base ref (default: the branch policy base)")
	cmd.Flags().Bool("protect", false, "Apply the branch policy protection rules")
	cmd.Flags().Bool("conflicts", false, "Predict conflicts against the base ref")
	cmd.Flags().Bool("pr", false, "Open a pull request for the branch")
	cmd.Flags().Bool("draft", false, "Open the pull request as a draft")
	cmd.Flags().StringSlice("labels", nil, "Extra pull request labels")
	cmd.Flags().Bool("comment", true, "Comment the issue with the branch and pull request")
}
