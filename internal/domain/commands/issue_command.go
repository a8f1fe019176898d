package commands

import (
	"context"
	"fmt"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/devflow/internal/domain/entities"
	"github.com/rios0rios0/devflow/internal/domain/repositories"
)

// RunIssueWorkflow is the interface for the issue-driven branch workflow.
type RunIssueWorkflow interface {
	Execute(
		ctx context.Context,
		gateway repositories.GatewayRepository,
		issues repositories.IssueRepository,
		repo entities.Repository,
		number int,
		opts IssueWorkflowOptions,
	) (*IssueWorkflowResult, error)
}

// IssueWorkflowOptions selects the optional steps of the workflow.
type IssueWorkflowOptions struct {
	Branch            BranchOptions
	CheckConflicts    bool
	CriticalPatterns  []string
	CreatePullRequest bool
	PullRequest       PullRequestOptions
	Comment           bool
}

// IssueWorkflowResult collects what each step produced. Steps that did not run are nil.
type IssueWorkflowResult struct {
	Issue       *entities.Issue
	Branch      *BranchResult
	Conflicts   *entities.ConflictReport
	PullRequest *entities.PullRequestResult
}

// IssueCommand fetches an issue, creates its branch and optionally checks
// conflicts, opens the pull request and comments on the issue.
type IssueCommand struct {
	branch      CreateBranch
	conflicts   DetectConflicts
	pullRequest CreatePullRequest
}

// NewIssueCommand creates a new IssueCommand.
func NewIssueCommand(
	branch CreateBranch,
	conflicts DetectConflicts,
	pullRequest CreatePullRequest,
) *IssueCommand {
	return &IssueCommand{branch: branch, conflicts: conflicts, pullRequest: pullRequest}
}

// Execute runs the workflow. An existing branch is reused: protection is not
// re-applied but the pull request can still be opened.
func (it *IssueCommand) Execute(
	ctx context.Context,
	gateway repositories.GatewayRepository,
	issues repositories.IssueRepository,
	repo entities.Repository,
	number int,
	opts IssueWorkflowOptions,
) (*IssueWorkflowResult, error) {
	issue, err := issues.GetIssue(ctx, repo, number)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch issue #%d: %w", number, err)
	}
	result := &IssueWorkflowResult{Issue: issue}

	branch, err := it.branch.Execute(ctx, gateway, repo, *issue, opts.Branch)
	result.Branch = branch
	if err != nil {
		return result, err
	}

	if opts.CheckConflicts {
		report, conflictErr := it.conflicts.Execute(
			ctx, gateway, repo,
			branch.Descriptor.Name, branch.Descriptor.BaseRef,
			ConflictOptions{CriticalPatterns: opts.CriticalPatterns},
		)
		if conflictErr != nil {
			return result, conflictErr
		}
		result.Conflicts = report
	}

	if opts.CreatePullRequest {
		pr, prErr := it.pullRequest.Execute(ctx, gateway, repo, branch.Descriptor, opts.PullRequest)
		result.PullRequest = pr
		if prErr != nil && pr == nil {
			return result, prErr
		}
		if prErr != nil {
			logger.Warnf("Pull request #%d opened with errors: %v", pr.Number, prErr)
		}
	}

	if opts.Comment {
		if commentErr := gateway.CreateComment(ctx, repo, issue.Number, issueComment(result)); commentErr != nil {
			logger.Warnf("Could not comment on issue #%d: %v", issue.Number, commentErr)
		}
	}
	return result, nil
}

func issueComment(result *IssueWorkflowResult) string {
	var sb strings.Builder
	descriptor := result.Branch.Descriptor

	verb := "Created"
	if result.Branch.Exists {
		verb = "Reusing"
	}
	fmt.Fprintf(&sb, "%s %s branch `%s` from `%s`.\n", verb, descriptor.Type, descriptor.Name, descriptor.BaseRef)

	if result.Conflicts != nil && result.Conflicts.HasConflicts {
		sb.WriteString("\nCritical paths changed: ")
		sb.WriteString(strings.Join(result.Conflicts.CriticalFiles(), ", "))
		sb.WriteString("\n")
	}
	if result.PullRequest != nil {
		fmt.Fprintf(&sb, "\nPull request: #%d %s\n", result.PullRequest.Number, result.PullRequest.URL)
	}
	return sb.String()
}
