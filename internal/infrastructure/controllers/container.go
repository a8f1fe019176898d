package controllers

import (
	"go.uber.org/dig"

	"github.com/rios0rios0/devflow/internal/domain/entities"
)

// RegisterProviders registers all controller providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	for _, constructor := range []any{
		NewIssueController,
		NewConflictsController,
		NewCoordinateBranchController,
		NewCoordinatePRController,
		NewSyncController,
		NewReleaseController,
		NewStatusController,
	} {
		if err := container.Provide(constructor); err != nil {
			return err
		}
	}

	if err := container.Provide(NewControllers); err != nil {
		return err
	}

	return nil
}

// NewControllers aggregates all controllers into a slice for the AppInternal.
func NewControllers(
	issueController *IssueController,
	conflictsController *ConflictsController,
	coordinateBranchController *CoordinateBranchController,
	coordinatePRController *CoordinatePRController,
	syncController *SyncController,
	releaseController *ReleaseController,
	statusController *StatusController,
) *[]entities.Controller {
	return &[]entities.Controller{
		issueController,
		conflictsController,
		coordinateBranchController,
		coordinatePRController,
		syncController,
		releaseController,
		statusController,
	}
}
