package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/devflow/internal/domain/entities"
	"github.com/rios0rios0/devflow/internal/domain/repositories"
)

// operation names used in reports and the cross_repo_operations_total metric
const (
	OperationCreateBranch      = "create-branch"
	OperationCreatePullRequest = "create-pull-request"
)

// Coordinate is the interface for the cross-repository coordinator.
type Coordinate interface {
	CreateBranches(
		ctx context.Context,
		gateway repositories.GatewayRepository,
		spec CoordinatedBranchSpec,
		opts CoordinationOptions,
	) (*entities.CoordinatedOperationReport, error)
	CreatePullRequests(
		ctx context.Context,
		gateway repositories.GatewayRepository,
		spec CoordinatedPullRequestSpec,
		opts CoordinationOptions,
	) (*entities.CoordinatedOperationReport, error)
}

// CoordinatedBranchSpec describes the branch created in every repository.
// Either Name or Issue must be set; an issue resolves name and base through the policies.
type CoordinatedBranchSpec struct {
	Name     string
	BaseRef  string // defaults to the policy base, then to each repository's default branch
	Issue    *entities.Issue
	Policies entities.BranchPolicies
}

// CoordinatedPullRequestSpec describes the pull request opened in every repository.
type CoordinatedPullRequestSpec struct {
	Head      string
	Branches  map[string]string // per-repository head overrides
	Base      string            // defaults to each repository's default branch
	Title     string
	Body      string
	Draft     bool
	Labels    []string
	CrossLink bool // comment every created PR with its siblings
}

// CoordinatorCommand executes branch and pull request operations across the
// registered repositories in dependency order.
type CoordinatorCommand struct {
	engine *coordinationEngine
}

// NewCoordinatorCommand creates a new CoordinatorCommand.
func NewCoordinatorCommand(
	registry repositories.RegistryRepository,
	metrics *entities.Metrics,
	events *entities.EventBus,
) *CoordinatorCommand {
	return &CoordinatorCommand{
		engine: &coordinationEngine{registry: registry, metrics: metrics, events: events},
	}
}

// CreateBranches creates the same branch in every target repository.
// Existing branches are skipped; created branches are deleted on a critical abort.
func (it *CoordinatorCommand) CreateBranches(
	ctx context.Context,
	gateway repositories.GatewayRepository,
	spec CoordinatedBranchSpec,
	opts CoordinationOptions,
) (*entities.CoordinatedOperationReport, error) {
	name, base, err := resolveBranchSpec(spec)
	if err != nil {
		return nil, err
	}
	ref := entities.BranchRef(name)

	precheck := func(ctx context.Context, d entities.RepositoryDescriptor) (bool, error) {
		return refExists(ctx, gateway, d.Repository, ref)
	}

	step := func(
		ctx context.Context, d entities.RepositoryDescriptor,
	) (entities.OperationOutcome, *compensation, error) {
		outcome := entities.OperationOutcome{Ref: name}

		baseRef := base
		if baseRef == "" {
			branch, branchErr := defaultBranch(ctx, gateway, d)
			if branchErr != nil {
				return outcome, nil, fmt.Errorf("failed to resolve default branch: %w", branchErr)
			}
			baseRef = branch
		}

		sha, getErr := gateway.GetRef(ctx, d.Repository, entities.BranchRef(baseRef))
		if getErr != nil {
			return outcome, nil, fmt.Errorf("failed to read base ref %q: %w", baseRef, getErr)
		}

		_, createErr := gateway.CreateRef(ctx, d.Repository, ref, sha)
		if errors.Is(createErr, entities.ErrAlreadyExists) {
			outcome.Status = entities.OutcomeSkipped
			outcome.Reason = "already exists"
			return outcome, nil, nil
		}
		if createErr != nil {
			return outcome, nil, fmt.Errorf("failed to create branch %q: %w", name, createErr)
		}

		it.engine.metrics.IncBranchesCreated()
		it.engine.events.Publish(entities.Event{
			Type:       entities.EventBranchCreated,
			Repository: d.ID(),
			Subject:    name,
		})
		outcome.Status = entities.OutcomeCreated
		repo := d.Repository
		return outcome, &compensation{
			repository: d.ID(),
			action:     "delete branch " + name,
			undo: func(ctx context.Context) error {
				return gateway.DeleteRef(ctx, repo, ref)
			},
		}, nil
	}

	return it.engine.run(ctx, OperationCreateBranch, ref, opts, precheck, step)
}

// CreatePullRequests opens a pull request in every target repository. Open
// PRs for the same head are skipped; created PRs are closed on a critical abort.
func (it *CoordinatorCommand) CreatePullRequests(
	ctx context.Context,
	gateway repositories.GatewayRepository,
	spec CoordinatedPullRequestSpec,
	opts CoordinationOptions,
) (*entities.CoordinatedOperationReport, error) {
	if spec.Head == "" && len(spec.Branches) == 0 {
		return nil, entities.NewValidationError("coordinated pull requests require a head branch")
	}
	if spec.Title == "" {
		spec.Title = spec.Head
	}

	step := func(
		ctx context.Context, d entities.RepositoryDescriptor,
	) (entities.OperationOutcome, *compensation, error) {
		head := spec.Head
		if override, ok := spec.Branches[d.ID()]; ok {
			head = override
		}
		outcome := entities.OperationOutcome{Ref: head}
		if head == "" {
			return outcome, nil, entities.NewValidationError("no head branch for %s", d.ID())
		}

		base := spec.Base
		if base == "" {
			branch, branchErr := defaultBranch(ctx, gateway, d)
			if branchErr != nil {
				return outcome, nil, fmt.Errorf("failed to resolve default branch: %w", branchErr)
			}
			base = branch
		}

		pr, createErr := gateway.CreatePullRequest(ctx, d.Repository, entities.PullRequestInput{
			Head:  head,
			Base:  base,
			Title: spec.Title,
			Body:  spec.Body,
			Draft: spec.Draft,
		})
		if errors.Is(createErr, entities.ErrAlreadyExists) {
			outcome.Status = entities.OutcomeSkipped
			outcome.Reason = "pull request already open"
			return outcome, nil, nil
		}
		if createErr != nil {
			return outcome, nil, fmt.Errorf("failed to create pull request: %w", createErr)
		}

		it.engine.metrics.IncPullRequestsCreated()
		it.engine.events.Publish(entities.Event{
			Type:       entities.EventPullRequestCreated,
			Repository: d.ID(),
			Subject:    head,
			Detail:     pr.URL,
		})

		if len(spec.Labels) > 0 {
			if labelErr := gateway.AddLabels(ctx, d.Repository, pr.Number, spec.Labels); labelErr != nil {
				logger.Warnf("[coordinator] Labels could not be applied to PR #%d in %s: %v", pr.Number, d.ID(), labelErr)
			}
		}

		outcome.Status = entities.OutcomeCreated
		outcome.Number = pr.Number
		outcome.URL = pr.URL
		repo, number := d.Repository, pr.Number
		return outcome, &compensation{
			repository: d.ID(),
			action:     fmt.Sprintf("close pull request #%d", number),
			undo: func(ctx context.Context) error {
				return gateway.ClosePullRequest(ctx, repo, number)
			},
		}, nil
	}

	report, err := it.engine.run(ctx, OperationCreatePullRequest, spec.Head, opts, nil, step)
	if err != nil {
		return report, err
	}

	if spec.CrossLink && len(report.Created) > 1 {
		crossLinkPullRequests(ctx, gateway, report)
	}
	return report, nil
}

// resolveBranchSpec returns the branch name and the explicit base ref, which
// is empty when every repository should use its own default branch.
func resolveBranchSpec(spec CoordinatedBranchSpec) (string, string, error) {
	name, base := spec.Name, spec.BaseRef
	if spec.Issue != nil {
		policies := spec.Policies
		if policies == nil {
			policies = entities.DefaultBranchPolicies()
		}
		descriptor := policies.Describe(*spec.Issue)
		if name == "" {
			name = descriptor.Name
		}
		if base == "" {
			base = descriptor.BaseRef
		}
	}
	if name == "" {
		return "", "", entities.NewValidationError("coordinated branch requires a name or an issue")
	}
	return name, base, nil
}

// crossLinkPullRequests comments every created PR with the list of its
// siblings. Comment failures are logged and do not affect the report.
func crossLinkPullRequests(
	ctx context.Context,
	gateway repositories.GatewayRepository,
	report *entities.CoordinatedOperationReport,
) {
	for _, current := range report.Created {
		var sb strings.Builder
		sb.WriteString("Related pull requests opened together with this one:\n\n")
		for _, sibling := range report.Created {
			if sibling.Repository == current.Repository {
				continue
			}
			fmt.Fprintf(&sb, "- %s#%d %s\n", sibling.Repository, sibling.Number, sibling.URL)
		}

		repo, err := entities.ParseRepository(current.Repository)
		if err != nil {
			continue
		}
		if commentErr := gateway.CreateComment(ctx, repo, current.Number, sb.String()); commentErr != nil {
			logger.Warnf("[coordinator] Cross-link comment on %s#%d failed: %v", current.Repository, current.Number, commentErr)
		}
	}
}
