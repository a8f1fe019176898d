package commands

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/devflow/internal/domain/entities"
	"github.com/rios0rios0/devflow/internal/domain/repositories"
)

// CoordinationOptions selects the repositories of a coordinated call and how
// failures are handled.
type CoordinationOptions struct {
	Repositories       []string // defaults to every registered repository
	ConflictPrevention bool     // pre-check every target before mutating any
	ContinueOnError    bool     // record critical failures instead of aborting
}

// compensation undoes one created outcome; a nil undo means nothing can be undone.
type compensation struct {
	repository string
	action     string
	undo       func(ctx context.Context) error
}

// stepFunc performs the operation in one repository.
type stepFunc func(
	ctx context.Context, descriptor entities.RepositoryDescriptor,
) (entities.OperationOutcome, *compensation, error)

// precheckFunc reports whether the operation would collide with existing state.
type precheckFunc func(ctx context.Context, descriptor entities.RepositoryDescriptor) (bool, error)

// coordinationEngine runs one operation across repositories in dependency
// order and compensates created work when a critical repository fails.
type coordinationEngine struct {
	registry repositories.RegistryRepository
	metrics  *entities.Metrics
	events   *entities.EventBus
}

func (e *coordinationEngine) run(
	ctx context.Context,
	operation, ref string,
	opts CoordinationOptions,
	precheck precheckFunc,
	step stepFunc,
) (*entities.CoordinatedOperationReport, error) {
	requested := opts.Repositories
	if len(requested) == 0 {
		for _, d := range e.registry.All() {
			requested = append(requested, d.ID())
		}
	}
	requested = dedupe(requested)

	report := entities.NewCoordinatedOperationReport(uuid.NewString(), operation, requested)
	logger.Infof("[coordinator] Starting %s %s across %d repositories", operation, report.ID, len(requested))

	targets := make([]entities.RepositoryDescriptor, 0, len(requested))
	for _, id := range requested {
		descriptor, ok := e.registry.Get(id)
		if !ok {
			report.Record(entities.OperationOutcome{
				Repository: id,
				Operation:  operation,
				Status:     entities.OutcomeFailed,
				Reason:     "repository is not registered",
				Err:        fmt.Errorf("repository %s: %w", id, entities.ErrNotFound),
			})
			continue
		}
		targets = append(targets, descriptor)
	}

	if opts.ConflictPrevention && precheck != nil {
		if err := e.precheck(ctx, ref, targets, precheck); err != nil {
			return nil, err
		}
	}

	ordered := entities.NewDependencyGraph(e.registry.All()).Order(targets)
	for _, d := range ordered {
		report.Order = append(report.Order, d.ID())
	}

	var created []compensation
	for i, descriptor := range ordered {
		if ctx.Err() != nil {
			e.skipRemaining(report, operation, ordered[i:], "operation canceled")
			report.FinishedAt = time.Now()
			return report, fmt.Errorf("coordinated %s interrupted: %w", operation, ctx.Err())
		}

		outcome, undo, err := step(ctx, descriptor)
		outcome.Repository = descriptor.ID()
		outcome.Operation = operation

		if err == nil {
			report.Record(outcome)
			if outcome.Status == entities.OutcomeCreated {
				if undo == nil {
					undo = &compensation{repository: descriptor.ID(), action: "none"}
				}
				created = append(created, *undo)
			}
			logger.Infof("[coordinator] %s in %s: %s %s", operation, descriptor.ID(), outcome.Status, outcome.Reason)
			continue
		}

		outcome.Status = entities.OutcomeFailed
		outcome.Err = err
		outcome.Reason = err.Error()
		report.Record(outcome)
		logger.Errorf("[coordinator] %s failed in %s: %v", operation, descriptor.ID(), err)

		if descriptor.IsCritical() && !opts.ContinueOnError {
			e.skipRemaining(
				report, operation, ordered[i+1:],
				fmt.Sprintf("aborted after critical repository %s failed", descriptor.ID()),
			)
			report.Rollback = e.rollback(ctx, created)
			report.FinishedAt = time.Now()
			return report, &entities.CoordinationError{
				Repository: descriptor.ID(),
				Cause:      err,
				Report:     report,
				Rollback:   report.Rollback,
			}
		}
	}

	report.FinishedAt = time.Now()
	e.metrics.IncCrossRepoOperations(operation)
	logger.Infof(
		"[coordinator] %s %s complete: %d created, %d skipped, %d failed",
		operation, report.ID, len(report.Created), len(report.Skipped), len(report.Failed),
	)
	e.events.Publish(entities.Event{
		Type:    entities.EventOperationCompleted,
		Subject: operation,
		Detail:  report.ID,
	})
	return report, nil
}

// precheck fails the whole call when any target already has the ref. Lookup
// errors other than NotFound are left for the execution step to record.
func (e *coordinationEngine) precheck(
	ctx context.Context,
	ref string,
	targets []entities.RepositoryDescriptor,
	check precheckFunc,
) error {
	var conflicting []string
	for _, descriptor := range targets {
		exists, err := check(ctx, descriptor)
		if err != nil {
			logger.Warnf("[coordinator] Pre-check of %s failed: %v", descriptor.ID(), err)
			continue
		}
		if exists {
			conflicting = append(conflicting, descriptor.ID())
		}
	}
	if len(conflicting) == 0 {
		return nil
	}

	sort.Strings(conflicting)
	for _, id := range conflicting {
		e.events.Publish(entities.Event{
			Type:       entities.EventConflictDetected,
			Repository: id,
			Subject:    ref,
			Detail:     "ref already exists",
		})
	}
	return &entities.PreflightConflictError{Ref: ref, Repositories: conflicting}
}

func (e *coordinationEngine) skipRemaining(
	report *entities.CoordinatedOperationReport,
	operation string,
	remaining []entities.RepositoryDescriptor,
	reason string,
) {
	for _, descriptor := range remaining {
		report.Record(entities.OperationOutcome{
			Repository: descriptor.ID(),
			Operation:  operation,
			Status:     entities.OutcomeSkipped,
			Reason:     reason,
		})
	}
}

// rollback compensates the created outcomes in the order they were created.
// It keeps going after a failed item and runs even if ctx was canceled.
func (e *coordinationEngine) rollback(ctx context.Context, created []compensation) *entities.RollbackSummary {
	rollbackCtx := context.WithoutCancel(ctx)
	summary := &entities.RollbackSummary{}

	logger.Warnf("[coordinator] Rolling back %d created outcomes", len(created))
	e.metrics.IncRollbacks()

	for _, c := range created {
		item := entities.RollbackItem{Repository: c.repository, Action: c.action}
		switch {
		case c.undo == nil:
			item.Status = entities.RollbackSkipped
		default:
			if err := c.undo(rollbackCtx); err != nil {
				item.Status = entities.RollbackFailed
				item.Err = fmt.Errorf("%w: %s in %s: %w", entities.ErrRollback, c.action, c.repository, err)
				logger.Errorf("[coordinator] Rollback of %s in %s failed: %v", c.action, c.repository, err)
				break
			}
			item.Status = entities.RollbackDeleted
		}
		summary.Add(item)
	}

	e.events.Publish(entities.Event{
		Type:   entities.EventRollbackCompleted,
		Detail: fmt.Sprintf("%d items, %d failed", len(summary.Items), len(summary.Failures())),
	})
	return summary
}

// defaultBranch returns the registered default branch, asking the gateway when unknown.
func defaultBranch(
	ctx context.Context,
	gateway repositories.GatewayRepository,
	descriptor entities.RepositoryDescriptor,
) (string, error) {
	if descriptor.DefaultBranch != "" {
		return descriptor.DefaultBranch, nil
	}
	metadata, err := gateway.GetRepositoryMetadata(ctx, descriptor.Repository)
	if err != nil {
		return "", err
	}
	return metadata.DefaultBranch, nil
}

// refExists turns a ref lookup into a boolean, treating NotFound as false.
func refExists(
	ctx context.Context,
	gateway repositories.GatewayRepository,
	repo entities.Repository,
	ref string,
) (bool, error) {
	_, err := gateway.GetRef(ctx, repo, ref)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, entities.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
