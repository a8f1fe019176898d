package commands

import (
	"context"
	"errors"
	"fmt"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/devflow/internal/domain/entities"
	"github.com/rios0rios0/devflow/internal/domain/repositories"
)

// CreateBranch is the interface for the smart branch creator.
type CreateBranch interface {
	Execute(
		ctx context.Context,
		gateway repositories.GatewayRepository,
		repo entities.Repository,
		issue entities.Issue,
		opts BranchOptions,
	) (*BranchResult, error)
}

// BranchOptions holds the caller-controlled parts of a branch creation.
type BranchOptions struct {
	Policies entities.BranchPolicies // defaults to entities.DefaultBranchPolicies()
	BaseRef  string                  // overrides the policy base ref
	Protect  bool                    // apply the policy protection rules after creation
}

// BranchResult is the outcome of a smart branch creation. Exists is true when
// the branch was already there, which is not an error.
type BranchResult struct {
	Descriptor entities.BranchDescriptor
	SHA        string
	Exists     bool
	Protected  bool
}

// BranchCommand creates the branch an issue resolves to.
type BranchCommand struct {
	metrics *entities.Metrics
	events  *entities.EventBus
}

// NewBranchCommand creates a new BranchCommand.
func NewBranchCommand(metrics *entities.Metrics, events *entities.EventBus) *BranchCommand {
	return &BranchCommand{metrics: metrics, events: events}
}

// Execute resolves the branch strategy for the issue, reads the base ref and
// creates the branch at that commit. When protection is requested and fails
// after creation, the result is returned together with the error.
func (it *BranchCommand) Execute(
	ctx context.Context,
	gateway repositories.GatewayRepository,
	repo entities.Repository,
	issue entities.Issue,
	opts BranchOptions,
) (*BranchResult, error) {
	policies := opts.Policies
	if policies == nil {
		policies = entities.DefaultBranchPolicies()
	}
	descriptor := policies.Describe(issue)
	if opts.BaseRef != "" {
		descriptor.BaseRef = opts.BaseRef
	}

	baseSHA, err := gateway.GetRef(ctx, repo, entities.BranchRef(descriptor.BaseRef))
	if err != nil {
		return nil, fmt.Errorf("failed to read base ref %q: %w", descriptor.BaseRef, err)
	}

	result := &BranchResult{Descriptor: descriptor}
	sha, err := gateway.CreateRef(ctx, repo, entities.BranchRef(descriptor.Name), baseSHA)
	switch {
	case errors.Is(err, entities.ErrAlreadyExists):
		logger.Infof("Branch %q already exists in %s", descriptor.Name, repo)
		result.Exists = true
		it.events.Publish(entities.Event{
			Type:       entities.EventBranchExists,
			Repository: repo.FullName(),
			Subject:    descriptor.Name,
		})
		return result, nil
	case err != nil:
		return nil, fmt.Errorf("failed to create branch %q: %w", descriptor.Name, err)
	}

	result.SHA = sha
	it.metrics.IncBranchesCreated()
	logger.Infof("Created %s branch %q in %s from %s", descriptor.Type, descriptor.Name, repo, descriptor.BaseRef)
	it.events.Publish(entities.Event{
		Type:       entities.EventBranchCreated,
		Repository: repo.FullName(),
		Subject:    descriptor.Name,
		Detail:     string(descriptor.Type),
	})

	if opts.Protect && len(descriptor.Policy.ProtectionRules) > 0 {
		if protectErr := gateway.ProtectBranch(
			ctx, repo, descriptor.Name, descriptor.Policy.ProtectionRules,
		); protectErr != nil {
			return result, fmt.Errorf("branch %q created but protection failed: %w", descriptor.Name, protectErr)
		}
		result.Protected = true
	}

	return result, nil
}
