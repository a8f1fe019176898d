package commands

import (
	"context"
	"fmt"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/devflow/internal/domain/entities"
	"github.com/rios0rios0/devflow/internal/domain/repositories"
)

// DetectConflicts is the interface for the conflict predictor.
type DetectConflicts interface {
	Execute(
		ctx context.Context,
		gateway repositories.GatewayRepository,
		repo entities.Repository,
		source, target string,
		opts ConflictOptions,
	) (*entities.ConflictReport, error)
}

// ConflictOptions holds the critical path patterns; empty means the defaults.
type ConflictOptions struct {
	CriticalPatterns []string
}

// ConflictCommand estimates the merge risk of a source branch into a target branch.
type ConflictCommand struct {
	metrics *entities.Metrics
	events  *entities.EventBus
}

// NewConflictCommand creates a new ConflictCommand.
func NewConflictCommand(metrics *entities.Metrics, events *entities.EventBus) *ConflictCommand {
	return &ConflictCommand{metrics: metrics, events: events}
}

// Execute compares target against source and classifies the changed files.
func (it *ConflictCommand) Execute(
	ctx context.Context,
	gateway repositories.GatewayRepository,
	repo entities.Repository,
	source, target string,
	opts ConflictOptions,
) (*entities.ConflictReport, error) {
	patterns := opts.CriticalPatterns
	if len(patterns) == 0 {
		patterns = entities.DefaultCriticalPatterns()
	}
	matcher, err := entities.NewCriticalPathMatcher(patterns)
	if err != nil {
		return nil, err
	}

	comparison, err := gateway.CompareRefs(ctx, repo, target, source)
	if err != nil {
		return nil, fmt.Errorf("failed to compare %s...%s: %w", target, source, err)
	}

	report := matcher.Classify(comparison)
	report.Repository = repo
	report.SourceBranch = source
	report.TargetBranch = target

	if report.HasConflicts {
		critical := report.CriticalFiles()
		it.metrics.IncConflictsDetected()
		logger.Warnf(
			"Merging %q into %q in %s touches critical paths: %s",
			source, target, repo, strings.Join(critical, ", "),
		)
		it.events.Publish(entities.Event{
			Type:       entities.EventConflictDetected,
			Repository: repo.FullName(),
			Subject:    source,
			Detail:     strings.Join(critical, ","),
		})
	} else {
		logger.Debugf("No critical paths changed between %q and %q in %s", source, target, repo)
	}

	return &report, nil
}
