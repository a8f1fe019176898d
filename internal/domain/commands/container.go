package commands

import (
	"go.uber.org/dig"
)

// RegisterProviders registers all command providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Register command constructors
	constructors := []any{
		NewBranchCommand,
		NewConflictCommand,
		NewPullRequestCommand,
		NewRegisterCommand,
		NewCoordinatorCommand,
		NewSyncCommand,
		NewAutoSyncCommand,
		NewReleaseCommand,
		NewStatusCommand,
		NewIssueCommand,
		NewWorkspaceCommand,
	}
	for _, constructor := range constructors {
		if err := container.Provide(constructor); err != nil {
			return err
		}
	}

	// Bind interfaces to implementations
	if err := container.Provide(func(impl *BranchCommand) CreateBranch {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *ConflictCommand) DetectConflicts {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *PullRequestCommand) CreatePullRequest {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *RegisterCommand) RegisterRepository {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *CoordinatorCommand) Coordinate {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *SyncCommand) Synchronize {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *AutoSyncCommand) AutoSync {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *ReleaseCommand) OrchestrateRelease {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *StatusCommand) GetStatus {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *IssueCommand) RunIssueWorkflow {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *WorkspaceCommand) PrepareWorkspace {
		return impl
	}); err != nil {
		return err
	}

	return nil
}
