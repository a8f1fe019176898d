package commands

import (
	"context"
	"fmt"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/devflow/internal/domain/entities"
	"github.com/rios0rios0/devflow/internal/domain/repositories"
)

const autoMergeLabel = "auto-merge"

// CreatePullRequest is the interface for the PR automator.
type CreatePullRequest interface {
	Execute(
		ctx context.Context,
		gateway repositories.GatewayRepository,
		repo entities.Repository,
		branch entities.BranchDescriptor,
		opts PullRequestOptions,
	) (*entities.PullRequestResult, error)
}

// PullRequestOptions holds the optional parts of a pull request.
type PullRequestOptions struct {
	Title  string // defaults to the issue title
	Draft  bool
	Labels []string // added to the issue labels
}

// PullRequestCommand opens a pull request linking a branch to its issue.
// Retrying a failed creation is left to the gateway.
type PullRequestCommand struct {
	metrics *entities.Metrics
	events  *entities.EventBus
}

// NewPullRequestCommand creates a new PullRequestCommand.
func NewPullRequestCommand(metrics *entities.Metrics, events *entities.EventBus) *PullRequestCommand {
	return &PullRequestCommand{metrics: metrics, events: events}
}

// Execute opens the pull request and applies the issue labels to it. A label
// failure is returned together with the result of the already opened PR.
func (it *PullRequestCommand) Execute(
	ctx context.Context,
	gateway repositories.GatewayRepository,
	repo entities.Repository,
	branch entities.BranchDescriptor,
	opts PullRequestOptions,
) (*entities.PullRequestResult, error) {
	title := opts.Title
	if title == "" {
		title = pullRequestTitle(branch)
	}

	pr, err := gateway.CreatePullRequest(ctx, repo, entities.PullRequestInput{
		Head:  branch.Name,
		Base:  branch.BaseRef,
		Title: title,
		Body:  generatePullRequestBody(branch),
		Draft: opts.Draft,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pull request for %q: %w", branch.Name, err)
	}

	it.metrics.IncPullRequestsCreated()
	logger.Infof("Created PR #%d in %s: %s", pr.Number, repo, pr.URL)
	it.events.Publish(entities.Event{
		Type:       entities.EventPullRequestCreated,
		Repository: repo.FullName(),
		Subject:    branch.Name,
		Detail:     pr.URL,
	})

	result := &entities.PullRequestResult{
		Number:             pr.Number,
		URL:                pr.URL,
		Branch:             branch.Name,
		Base:               branch.BaseRef,
		Labels:             pullRequestLabels(branch, opts.Labels),
		AutoMergeRequested: branch.Policy.AutoMerge,
	}

	if len(result.Labels) > 0 {
		if labelErr := gateway.AddLabels(ctx, repo, pr.Number, result.Labels); labelErr != nil {
			return result, fmt.Errorf("PR #%d created but labels could not be applied: %w", pr.Number, labelErr)
		}
	}

	return result, nil
}

func pullRequestTitle(branch entities.BranchDescriptor) string {
	if branch.Issue.Title == "" {
		return branch.Name
	}
	if branch.Issue.Number > 0 {
		return fmt.Sprintf("%s (#%d)", branch.Issue.Title, branch.Issue.Number)
	}
	return branch.Issue.Title
}

// pullRequestLabels returns the issue labels, the extra labels and the
// auto-merge marker, without duplicates.
func pullRequestLabels(branch entities.BranchDescriptor, extra []string) []string {
	candidates := append(append([]string(nil), branch.Issue.Labels...), extra...)
	if branch.Policy.AutoMerge {
		candidates = append(candidates, autoMergeLabel)
	}

	seen := make(map[string]bool, len(candidates))
	labels := make([]string, 0, len(candidates))
	for _, label := range candidates {
		if label == "" || seen[label] {
			continue
		}
		seen[label] = true
		labels = append(labels, label)
	}
	return labels
}

// generatePullRequestBody creates the markdown description linking the issue.
func generatePullRequestBody(branch entities.BranchDescriptor) string {
	var sb strings.Builder

	sb.WriteString("## Summary\n\n")
	if branch.Issue.Number > 0 {
		fmt.Fprintf(&sb, "Closes #%d\n\n", branch.Issue.Number)
	}
	if branch.Issue.URL != "" {
		fmt.Fprintf(&sb, "Issue: %s\n\n", branch.Issue.URL)
	}

	sb.WriteString("| Branch | Type | Base |\n")
	sb.WriteString("|--------|------|------|\n")
	fmt.Fprintf(&sb, "| `%s` | %s | `%s` |\n\n", branch.Name, branch.Type, branch.BaseRef)

	if branch.Policy.Priority != "" {
		fmt.Fprintf(&sb, "**Priority:** %s\n\n", branch.Policy.Priority)
	}
	if len(branch.Policy.ProtectionRules) > 0 {
		fmt.Fprintf(&sb, "**Protection rules:** %s\n\n", strings.Join(branch.Policy.ProtectionRules, ", "))
	}
	if branch.Policy.AutoMerge {
		sb.WriteString("Auto-merge was requested for this pull request.\n\n")
	}

	sb.WriteString("---\n")
	sb.WriteString("*This PR was automatically created by [devflow](https://github.com/rios0rios0/devflow)*\n")

	return sb.String()
}
